// Copyright 2020, Square, Inc.

package parser

import (
	"gopkg.in/yaml.v2"

	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

// YAML job documents mirror the XML vocabulary. Ordered children (job
// elements, transitions) are lists of single-key maps so document order is
// kept:
//
//   job:
//     id: job1
//     properties:
//       property:
//         - {name: a, value: "1"}
//     elements:
//       - step:
//           id: step1
//           batchlet: {ref: b1}
//           transitions:
//             - end: {on: COMPLETED}

type yamlDoc struct {
	Job *yamlJob `yaml:"job"`
}

type yamlJob struct {
	Id          string          `yaml:"id"`
	Restartable string          `yaml:"restartable"`
	Version     string          `yaml:"version"`
	Abstract    bool            `yaml:"abstract"`
	Parent      string          `yaml:"parent"`
	JslName     string          `yaml:"jsl-name"`
	Properties  *yamlProperties `yaml:"properties"`
	Listeners   *yamlListeners  `yaml:"listeners"`
	Elements    []yamlElement   `yaml:"elements"`
}

type yamlElement struct {
	Step     *yamlStep     `yaml:"step"`
	Flow     *yamlFlow     `yaml:"flow"`
	Split    *yamlSplit    `yaml:"split"`
	Decision *yamlDecision `yaml:"decision"`
}

type yamlStep struct {
	Id                   string           `yaml:"id"`
	Next                 string           `yaml:"next"`
	StartLimit           string           `yaml:"start-limit"`
	AllowStartIfComplete string           `yaml:"allow-start-if-complete"`
	Abstract             bool             `yaml:"abstract"`
	Parent               string           `yaml:"parent"`
	JslName              string           `yaml:"jsl-name"`
	Properties           *yamlProperties  `yaml:"properties"`
	Listeners            *yamlListeners   `yaml:"listeners"`
	Batchlet             *yamlArtifact    `yaml:"batchlet"`
	Chunk                *yamlChunk       `yaml:"chunk"`
	Partition            *yamlPartition   `yaml:"partition"`
	Transitions          []yamlTransition `yaml:"transitions"`
}

type yamlFlow struct {
	Id          string           `yaml:"id"`
	Next        string           `yaml:"next"`
	Abstract    bool             `yaml:"abstract"`
	Parent      string           `yaml:"parent"`
	JslName     string           `yaml:"jsl-name"`
	Elements    []yamlElement    `yaml:"elements"`
	Transitions []yamlTransition `yaml:"transitions"`
}

type yamlSplit struct {
	Id          string           `yaml:"id"`
	Next        string           `yaml:"next"`
	Flows       []*yamlFlow      `yaml:"flows"`
	Transitions []yamlTransition `yaml:"transitions"`
}

type yamlDecision struct {
	Id          string           `yaml:"id"`
	Ref         string           `yaml:"ref"`
	Properties  *yamlProperties  `yaml:"properties"`
	Transitions []yamlTransition `yaml:"transitions"`
}

type yamlTransition struct {
	Next *yamlTransitionAttrs `yaml:"next"`
	Fail *yamlTransitionAttrs `yaml:"fail"`
	End  *yamlTransitionAttrs `yaml:"end"`
	Stop *yamlTransitionAttrs `yaml:"stop"`
}

type yamlTransitionAttrs struct {
	On         string `yaml:"on"`
	To         string `yaml:"to"`
	ExitStatus string `yaml:"exit-status"`
	Restart    string `yaml:"restart"`
}

type yamlChunk struct {
	CheckpointPolicy           string        `yaml:"checkpoint-policy"`
	ItemCount                  string        `yaml:"item-count"`
	TimeLimit                  string        `yaml:"time-limit"`
	SkipLimit                  string        `yaml:"skip-limit"`
	RetryLimit                 string        `yaml:"retry-limit"`
	Reader                     *yamlArtifact `yaml:"reader"`
	Processor                  *yamlArtifact `yaml:"processor"`
	Writer                     *yamlArtifact `yaml:"writer"`
	CheckpointAlgorithm        *yamlArtifact `yaml:"checkpoint-algorithm"`
	SkippableExceptionClasses  *yamlFilter   `yaml:"skippable-exception-classes"`
	RetryableExceptionClasses  *yamlFilter   `yaml:"retryable-exception-classes"`
	NoRollbackExceptionClasses *yamlFilter   `yaml:"no-rollback-exception-classes"`
}

type yamlFilter struct {
	Merge   *bool    `yaml:"merge"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

type yamlPartition struct {
	Mapper    *yamlArtifact `yaml:"mapper"`
	Plan      *yamlPlan     `yaml:"plan"`
	Collector *yamlArtifact `yaml:"collector"`
	Analyzer  *yamlArtifact `yaml:"analyzer"`
	Reducer   *yamlArtifact `yaml:"reducer"`
}

type yamlPlan struct {
	Partitions string            `yaml:"partitions"`
	Threads    string            `yaml:"threads"`
	Properties []*yamlProperties `yaml:"properties"`
}

type yamlArtifact struct {
	Ref        string          `yaml:"ref"`
	Properties *yamlProperties `yaml:"properties"`
	Script     *yamlScript     `yaml:"script"`
}

type yamlScript struct {
	Type    string `yaml:"type"`
	Src     string `yaml:"src"`
	Content string `yaml:"content"`
}

type yamlListeners struct {
	Merge    *bool           `yaml:"merge"`
	Listener []*yamlArtifact `yaml:"listener"`
}

type yamlProperties struct {
	Partition string         `yaml:"partition"`
	Merge     *bool          `yaml:"merge"`
	Property  []yamlProperty `yaml:"property"`
}

type yamlProperty struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// --------------------------------------------------------------------------

func parseYAMLJob(data []byte) (*jsl.Job, error) {
	var doc yamlDoc
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, errors.NewStructuralError("", "%s", err)
	}
	if doc.Job == nil {
		return nil, errors.NewStructuralError("", "missing root key job")
	}
	y := doc.Job
	job := &jsl.Job{
		Inheritance: jsl.Inheritance{Abstract: y.Abstract, Parent: y.Parent, JslName: y.JslName},
		Id:          y.Id,
		Restartable: y.Restartable,
		Properties:  y.Properties.toJSL(),
		Listeners:   y.Listeners.toJSL(),
	}
	if job.Parent != "" {
		job.InheritingElements = append(job.InheritingElements, job.Id)
	}
	elements, err := convertElements(job, "job "+y.Id, y.Elements)
	if err != nil {
		return nil, err
	}
	job.Elements = elements
	return job, nil
}

func convertElements(job *jsl.Job, where string, in []yamlElement) ([]jsl.JobElement, error) {
	out := []jsl.JobElement{}
	for _, ye := range in {
		var e jsl.JobElement
		n := 0
		if ye.Step != nil {
			n++
			e = ye.Step.toJSL(job)
		}
		if ye.Flow != nil {
			n++
			f, err := ye.Flow.toJSL(job)
			if err != nil {
				return nil, err
			}
			e = f
		}
		if ye.Split != nil {
			n++
			s, err := ye.Split.toJSL(job)
			if err != nil {
				return nil, err
			}
			e = s
		}
		if ye.Decision != nil {
			n++
			e = ye.Decision.toJSL()
		}
		if n != 1 {
			return nil, errors.NewStructuralError(where, "element must have exactly one of step, flow, split, decision")
		}
		t, err := convertTransitions(e.ElementId(), ye.transitions())
		if err != nil {
			return nil, err
		}
		setTransitions(e, t)
		out = append(out, e)
	}
	return out, nil
}

func (ye yamlElement) transitions() []yamlTransition {
	switch {
	case ye.Step != nil:
		return ye.Step.Transitions
	case ye.Flow != nil:
		return ye.Flow.Transitions
	case ye.Split != nil:
		return ye.Split.Transitions
	case ye.Decision != nil:
		return ye.Decision.Transitions
	}
	return nil
}

func setTransitions(e jsl.JobElement, t []*jsl.Transition) {
	switch v := e.(type) {
	case *jsl.Step:
		v.TransitionElements = t
	case *jsl.Flow:
		v.TransitionElements = t
	case *jsl.Split:
		v.TransitionElements = t
	case *jsl.Decision:
		v.TransitionElements = t
	}
}

func noteInheriting(job *jsl.Job, id, parent string) {
	if parent != "" {
		job.InheritingElements = append(job.InheritingElements, id)
	}
}

func (y *yamlStep) toJSL(job *jsl.Job) *jsl.Step {
	noteInheriting(job, y.Id, y.Parent)
	s := &jsl.Step{
		Inheritance:          jsl.Inheritance{Abstract: y.Abstract, Parent: y.Parent, JslName: y.JslName},
		Id:                   y.Id,
		Next:                 y.Next,
		StartLimit:           y.StartLimit,
		AllowStartIfComplete: y.AllowStartIfComplete,
		Properties:           y.Properties.toJSL(),
		Listeners:            y.Listeners.toJSL(),
		Batchlet:             y.Batchlet.toJSL(),
	}
	if c := y.Chunk; c != nil {
		s.Chunk = &jsl.Chunk{
			Reader:                     c.Reader.toJSL(),
			Processor:                  c.Processor.toJSL(),
			Writer:                     c.Writer.toJSL(),
			CheckpointAlgorithm:        c.CheckpointAlgorithm.toJSL(),
			CheckpointPolicy:           c.CheckpointPolicy,
			ItemCount:                  c.ItemCount,
			TimeLimit:                  c.TimeLimit,
			SkipLimit:                  c.SkipLimit,
			RetryLimit:                 c.RetryLimit,
			SkippableExceptionClasses:  c.SkippableExceptionClasses.toJSL(),
			RetryableExceptionClasses:  c.RetryableExceptionClasses.toJSL(),
			NoRollbackExceptionClasses: c.NoRollbackExceptionClasses.toJSL(),
		}
	}
	if p := y.Partition; p != nil {
		s.Partition = &jsl.Partition{
			Mapper:    p.Mapper.toJSL(),
			Collector: p.Collector.toJSL(),
			Analyzer:  p.Analyzer.toJSL(),
			Reducer:   p.Reducer.toJSL(),
		}
		if p.Plan != nil {
			s.Partition.Plan = &jsl.PartitionPlan{
				Partitions: p.Plan.Partitions,
				Threads:    p.Plan.Threads,
			}
			for _, props := range p.Plan.Properties {
				s.Partition.Plan.Properties = append(s.Partition.Plan.Properties, props.toJSL())
			}
		}
	}
	return s
}

func (y *yamlFlow) toJSL(job *jsl.Job) (*jsl.Flow, error) {
	noteInheriting(job, y.Id, y.Parent)
	f := &jsl.Flow{
		Inheritance: jsl.Inheritance{Abstract: y.Abstract, Parent: y.Parent, JslName: y.JslName},
		Id:          y.Id,
		Next:        y.Next,
	}
	elements, err := convertElements(job, "flow "+y.Id, y.Elements)
	if err != nil {
		return nil, err
	}
	f.Elements = elements
	return f, nil
}

func (y *yamlSplit) toJSL(job *jsl.Job) (*jsl.Split, error) {
	s := &jsl.Split{
		Id:    y.Id,
		Next:  y.Next,
		Flows: []*jsl.Flow{},
	}
	for _, yf := range y.Flows {
		f, err := yf.toJSL(job)
		if err != nil {
			return nil, err
		}
		if f.TransitionElements, err = convertTransitions(f.Id, yf.Transitions); err != nil {
			return nil, err
		}
		s.Flows = append(s.Flows, f)
	}
	return s, nil
}

func (y *yamlDecision) toJSL() *jsl.Decision {
	return &jsl.Decision{
		Id:         y.Id,
		Ref:        y.Ref,
		Properties: y.Properties.toJSL(),
	}
}

func convertTransitions(id string, in []yamlTransition) ([]*jsl.Transition, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]*jsl.Transition, 0, len(in))
	for _, yt := range in {
		var t *jsl.Transition
		n := 0
		if a := yt.Next; a != nil {
			n++
			t = &jsl.Transition{Type: jsl.TransitionNext, On: a.On, To: a.To}
		}
		if a := yt.Fail; a != nil {
			n++
			t = &jsl.Transition{Type: jsl.TransitionFail, On: a.On, ExitStatus: a.ExitStatus}
		}
		if a := yt.End; a != nil {
			n++
			t = &jsl.Transition{Type: jsl.TransitionEnd, On: a.On, ExitStatus: a.ExitStatus}
		}
		if a := yt.Stop; a != nil {
			n++
			t = &jsl.Transition{Type: jsl.TransitionStop, On: a.On, ExitStatus: a.ExitStatus, Restart: a.Restart}
		}
		if n != 1 {
			return nil, errors.NewStructuralError(id, "transition must have exactly one of next, fail, end, stop")
		}
		if t.Type != jsl.TransitionNext && yt.attrs().To != "" {
			return nil, errors.NewStructuralError(id, "unknown attribute to on %s transition", t.Type)
		}
		if t.Type != jsl.TransitionStop && yt.attrs().Restart != "" {
			return nil, errors.NewStructuralError(id, "unknown attribute restart on %s transition", t.Type)
		}
		if t.Type == jsl.TransitionNext && yt.attrs().ExitStatus != "" {
			return nil, errors.NewStructuralError(id, "unknown attribute exit-status on next transition")
		}
		out = append(out, t)
	}
	return out, nil
}

func (yt yamlTransition) attrs() *yamlTransitionAttrs {
	for _, a := range []*yamlTransitionAttrs{yt.Next, yt.Fail, yt.End, yt.Stop} {
		if a != nil {
			return a
		}
	}
	return &yamlTransitionAttrs{}
}

func (y *yamlArtifact) toJSL() *jsl.RefArtifact {
	if y == nil {
		return nil
	}
	a := &jsl.RefArtifact{
		Ref:        y.Ref,
		Properties: y.Properties.toJSL(),
	}
	if y.Script != nil {
		a.Script = &jsl.Script{Type: y.Script.Type, Src: y.Script.Src, Content: y.Script.Content}
	}
	return a
}

func (y *yamlFilter) toJSL() *jsl.ExceptionClassFilter {
	if y == nil {
		return nil
	}
	return &jsl.ExceptionClassFilter{
		Merge:   y.Merge,
		Include: y.Include,
		Exclude: y.Exclude,
	}
}

func (y *yamlListeners) toJSL() *jsl.Listeners {
	if y == nil {
		return nil
	}
	l := &jsl.Listeners{Merge: y.Merge, Listeners: []*jsl.RefArtifact{}}
	for _, a := range y.Listener {
		l.Listeners = append(l.Listeners, a.toJSL())
	}
	return l
}

func (y *yamlProperties) toJSL() *jsl.Properties {
	if y == nil {
		return nil
	}
	p := &jsl.Properties{
		Partition: y.Partition,
		Merge:     y.Merge,
		Entries:   []jsl.Property{},
	}
	for _, prop := range y.Property {
		p.Set(prop.Name, prop.Value)
	}
	return p
}
