// Copyright 2020, Square, Inc.

package parser_test

import (
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
	"github.com/square/jsl/parser"
	"github.com/square/jsl/test"
)

func parseFile(t *testing.T, name string) *jsl.Job {
	job, err := parser.ParseJobFile(test.SpecPath + "/" + name)
	if err != nil {
		t.Fatalf("failed to parse %s: %s", name, err)
	}
	return job
}

func parseXML(doc string) (*jsl.Job, error) {
	return parser.ParseJob(strings.NewReader(doc), parser.XML)
}

func expectStructuralError(t *testing.T, err error, contains string) {
	t.Helper()
	if err == nil {
		t.Fatalf("no error, expected StructuralError containing %q", contains)
	}
	if _, ok := err.(errors.StructuralError); !ok {
		t.Fatalf("got %T (%s), expected errors.StructuralError", err, err)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("error %q does not contain %q", err, contains)
	}
}

func TestParseSimpleXML(t *testing.T) {
	job := parseFile(t, "simple.xml")

	if job.Id != "simple" {
		t.Errorf("job id = %s, expected simple", job.Id)
	}
	if job.Restartable != "#{jobParameters['restartable']}" {
		t.Errorf("restartable = %s, expected unresolved expression", job.Restartable)
	}
	if diff := deep.Equal(job.Properties.Names(), []string{"inputDir", "inputFile"}); diff != nil {
		t.Error(diff)
	}
	if len(job.Elements) != 4 {
		t.Fatalf("got %d job elements, expected 4", len(job.Elements))
	}

	load := job.Elements[1].(*jsl.Step)
	if load.Chunk == nil || load.Chunk.Reader.Ref != "csvReader" || load.Chunk.ItemCount != "#{jobParameters['itemCount']}?:10;" {
		t.Errorf("chunk not parsed: %+v", load.Chunk)
	}
	expectFilter := &jsl.ExceptionClassFilter{
		Include: []string{"java.io.IOException"},
		Exclude: []string{"java.io.FileNotFoundException"},
	}
	if diff := deep.Equal(load.Chunk.SkippableExceptionClasses, expectFilter); diff != nil {
		t.Error(diff)
	}
	if load.Partition.Plan.Partitions != "2" || load.Partition.Plan.EffectiveThreads() != "2" {
		t.Errorf("plan = %+v, expected 2 partitions and 2 threads", load.Partition.Plan)
	}
	if v, _ := load.Partition.Plan.PartitionProperties("1").Get("range"); v != "100-199" {
		t.Errorf("partition 1 range = %s, expected 100-199", v)
	}

	expectTransitions := []*jsl.Transition{
		{Type: jsl.TransitionNext, On: "COMPLETED", To: "post"},
		{Type: jsl.TransitionFail, On: "FAILED", ExitStatus: "LOAD_FAILED"},
		{Type: jsl.TransitionEnd, On: "*"},
	}
	if diff := deep.Equal(load.TransitionElements, expectTransitions); diff != nil {
		t.Error(diff)
	}

	split := job.Elements[2].(*jsl.Split)
	if len(split.Flows) != 2 || split.Flows[0].Id != "notify" || split.Flows[1].Id != "archive" {
		t.Errorf("split flows not in document order: %+v", split.Flows)
	}
	zip := split.Flows[1].Elements[0].(*jsl.Step)
	if zip.Batchlet.Script == nil || zip.Batchlet.Script.Type != "javascript" || !strings.Contains(zip.Batchlet.Script.Content, "COMPLETED") {
		t.Errorf("script not parsed: %+v", zip.Batchlet.Script)
	}

	decision := job.Elements[3].(*jsl.Decision)
	if decision.TransitionElements[0].Type != jsl.TransitionStop || decision.TransitionElements[0].Restart != "load" {
		t.Errorf("stop transition not parsed: %+v", decision.TransitionElements[0])
	}
}

func TestParseYAMLMatchesXML(t *testing.T) {
	x := parseFile(t, "simple.xml")
	y := parseFile(t, "simple.yaml")
	if diff := deep.Equal(x, y); diff != nil {
		t.Error(diff)
	}
}

func TestInheritingElementsInDocumentOrder(t *testing.T) {
	job := parseFile(t, "inheritance.xml")
	if diff := deep.Equal(job.InheritingElements, []string{"middle", "load", "done"}); diff != nil {
		t.Error(diff)
	}

	job = parseFile(t, "child-job.xml")
	if diff := deep.Equal(job.InheritingElements, []string{"child-job"}); diff != nil {
		t.Error(diff)
	}
}

func TestUnknownElement(t *testing.T) {
	_, err := parseXML(`<job id="j"><step id="s"><tasklet ref="t"/></step></job>`)
	expectStructuralError(t, err, "unknown element <tasklet>")
}

func TestUnknownAttribute(t *testing.T) {
	_, err := parseXML(`<job id="j"><step id="s" color="red"><batchlet ref="b"/></step></job>`)
	expectStructuralError(t, err, "unknown attribute color")
}

func TestMissingRequiredAttribute(t *testing.T) {
	_, err := parseXML(`<job><step id="s"><batchlet ref="b"/></step></job>`)
	expectStructuralError(t, err, "missing required attribute id")

	_, err = parseXML(`<job id="j"><decision id="d"/></job>`)
	expectStructuralError(t, err, "missing required attribute ref")

	_, err = parseXML(`<job id="j"><step id="s"><batchlet ref="b"/><next on="X"/></step></job>`)
	expectStructuralError(t, err, "missing required attribute to")
}

func TestChunkAndBatchlet(t *testing.T) {
	_, err := parseXML(`<job id="j"><step id="s"><batchlet ref="b"/><chunk><reader ref="r"/></chunk></step></job>`)
	expectStructuralError(t, err, "both chunk and batchlet")
}

func TestNextAttributeAndElement(t *testing.T) {
	_, err := parseXML(`<job id="j">
		<step id="s" next="t"><batchlet ref="b"/><next on="*" to="t"/></step>
		<step id="t"><batchlet ref="b"/></step>
	</job>`)
	expectStructuralError(t, err, "mutually exclusive")
}

func TestFlowCannotHaveProperties(t *testing.T) {
	_, err := parseXML(`<job id="j"><flow id="f"><properties/></flow></job>`)
	expectStructuralError(t, err, "flow cannot have <properties>")

	_, err = parseXML(`<job id="j"><split id="sp"><listeners/></split></job>`)
	expectStructuralError(t, err, "split cannot have <listeners>")
}

func TestMapperAndPlan(t *testing.T) {
	_, err := parseXML(`<job id="j"><step id="s"><batchlet ref="b"/>
		<partition><mapper ref="m"/><plan partitions="2"/></partition>
	</step></job>`)
	expectStructuralError(t, err, "both mapper and plan")
}

func TestScriptAndRef(t *testing.T) {
	_, err := parseXML(`<job id="j"><step id="s"><batchlet ref="b"><script type="js">x</script></batchlet></step></job>`)
	expectStructuralError(t, err, "both ref and script")
}

func TestDuplicateSingleton(t *testing.T) {
	_, err := parseXML(`<job id="j"><step id="s"><chunk><reader ref="a"/><reader ref="b"/></chunk></step></job>`)
	expectStructuralError(t, err, "more than one <reader>")
}

func TestBadMergeFlag(t *testing.T) {
	_, err := parseXML(`<job id="j"><properties merge="maybe"/></job>`)
	expectStructuralError(t, err, "expected true or false")
}

func TestWrongRoot(t *testing.T) {
	_, err := parseXML(`<step id="s"/>`)
	expectStructuralError(t, err, "expected <job>")
}

func TestMalformedXML(t *testing.T) {
	_, err := parseXML(`<job id="j"><step id="s">`)
	expectStructuralError(t, err, "malformed xml")
}

func TestDuplicateIdsInNestedFlow(t *testing.T) {
	_, err := parseXML(`<job id="j">
		<step id="a"><batchlet ref="b"/></step>
		<split id="sp">
			<flow id="f1"><step id="a"><batchlet ref="b"/></step></flow>
		</split>
	</job>`)
	if _, ok := err.(errors.DuplicateIdError); !ok {
		t.Fatalf("got %T (%v), expected errors.DuplicateIdError", err, err)
	}
}

func TestYAMLUnknownKey(t *testing.T) {
	_, err := parser.ParseJob(strings.NewReader("job:\n  id: j\n  colour: red\n"), parser.YAML)
	expectStructuralError(t, err, "colour")
}

func TestYAMLElementNeedsOneKind(t *testing.T) {
	doc := `
job:
  id: j
  elements:
    - step: {id: s, batchlet: {ref: b}}
      decision: {id: d, ref: r}
`
	_, err := parser.ParseJob(strings.NewReader(doc), parser.YAML)
	expectStructuralError(t, err, "exactly one of step, flow, split, decision")
}

func TestFormatOf(t *testing.T) {
	for path, expect := range map[string]parser.Format{"a.xml": parser.XML, "a.yaml": parser.YAML, "a.YML": parser.YAML} {
		f, err := parser.FormatOf(path)
		if err != nil || f != expect {
			t.Errorf("FormatOf(%s) = %s, %v; expected %s", path, f, err, expect)
		}
	}
	if _, err := parser.FormatOf("a.json"); err == nil {
		t.Error("FormatOf(a.json) returned no error")
	}
}
