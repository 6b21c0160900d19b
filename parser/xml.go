// Copyright 2020, Square, Inc.

package parser

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

// element is one XML element. Documents are small, so they're read into a
// tree first and then converted with strict checks on every element.
type element struct {
	name     string
	attrs    map[string]string
	children []*element
	text     strings.Builder
}

func (e *element) attr(name string) string {
	return e.attrs[name]
}

// readXML reads data into an element tree. Namespace declarations and
// namespaced attributes (xmlns, xsi:schemaLocation...) are dropped; element
// namespaces are ignored.
func readXML(data []byte) (*element, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	var root *element
	var stack []*element
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewStructuralError("", "malformed xml: %s", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			e := &element{name: t.Name.Local, attrs: map[string]string{}}
			for _, a := range t.Attr {
				if a.Name.Space != "" || a.Name.Local == "xmlns" {
					continue
				}
				e.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.NewStructuralError("", "more than one root element")
				}
				root = e
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
			}
			stack = append(stack, e)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, errors.NewStructuralError("", "empty document")
	}
	return root, nil
}

// checkAttrs returns an error if e has an attribute not in allowed, or is
// missing one of required.
func checkAttrs(e *element, where string, allowed []string, required ...string) error {
	for name := range e.attrs {
		ok := false
		for _, a := range allowed {
			if a == name {
				ok = true
				break
			}
		}
		if !ok {
			return errors.NewStructuralError(where, "unknown attribute %s on <%s>", name, e.name)
		}
	}
	for _, r := range required {
		if strings.TrimSpace(e.attrs[r]) == "" {
			return errors.NewStructuralError(where, "<%s> missing required attribute %s", e.name, r)
		}
	}
	return nil
}

func checkNoText(e *element, where string) error {
	if strings.TrimSpace(e.text.String()) != "" {
		return errors.NewStructuralError(where, "unexpected text in <%s>", e.name)
	}
	return nil
}

func unknownElement(where string, child *element) error {
	return errors.NewStructuralError(where, "unknown element <%s>", child.name)
}

func duplicateElement(where string, child *element) error {
	return errors.NewStructuralError(where, "more than one <%s>", child.name)
}

// --------------------------------------------------------------------------

type xmlParser struct {
	job *jsl.Job
}

func parseXMLJob(data []byte) (*jsl.Job, error) {
	root, err := readXML(data)
	if err != nil {
		return nil, err
	}
	if root.name != "job" {
		return nil, errors.NewStructuralError("", "root element is <%s>, expected <job>", root.name)
	}
	p := &xmlParser{}
	return p.parseJob(root)
}

var inheritableAttrs = []string{"abstract", "parent", "jsl-name"}

func (p *xmlParser) inheritance(e *element, where string) (jsl.Inheritance, error) {
	abstract, err := parseBool(where, "abstract", e.attr("abstract"))
	if err != nil {
		return jsl.Inheritance{}, err
	}
	i := jsl.Inheritance{
		Parent:  e.attr("parent"),
		JslName: e.attr("jsl-name"),
	}
	if abstract != nil {
		i.Abstract = *abstract
	}
	if i.JslName != "" && i.Parent == "" {
		return i, errors.NewStructuralError(where, "jsl-name set without parent")
	}
	return i, nil
}

func (p *xmlParser) parseJob(e *element) (*jsl.Job, error) {
	where := "job " + e.attr("id")
	if err := checkAttrs(e, where, append([]string{"id", "restartable", "version"}, inheritableAttrs...), "id"); err != nil {
		return nil, err
	}
	if err := checkNoText(e, where); err != nil {
		return nil, err
	}
	inh, err := p.inheritance(e, where)
	if err != nil {
		return nil, err
	}
	job := &jsl.Job{
		Inheritance: inh,
		Id:          e.attr("id"),
		Restartable: e.attr("restartable"),
		Elements:    []jsl.JobElement{},
	}
	p.job = job
	if job.Parent != "" {
		job.InheritingElements = append(job.InheritingElements, job.Id)
	}

	for _, c := range e.children {
		switch c.name {
		case "properties":
			if job.Properties != nil {
				return nil, duplicateElement(where, c)
			}
			if job.Properties, err = p.parseProperties(c, where); err != nil {
				return nil, err
			}
		case "listeners":
			if job.Listeners != nil {
				return nil, duplicateElement(where, c)
			}
			if job.Listeners, err = p.parseListeners(c, where); err != nil {
				return nil, err
			}
		default:
			je, err := p.parseJobElement(c, where)
			if err != nil {
				return nil, err
			}
			job.Elements = append(job.Elements, je)
		}
	}
	return job, nil
}

// parseJobElement parses a step, flow, split or decision.
func (p *xmlParser) parseJobElement(e *element, where string) (jsl.JobElement, error) {
	switch e.name {
	case "step":
		return p.parseStep(e)
	case "flow":
		return p.parseFlow(e)
	case "split":
		return p.parseSplit(e)
	case "decision":
		return p.parseDecision(e)
	}
	return nil, unknownElement(where, e)
}

func (p *xmlParser) noteInheriting(id string, i jsl.Inheritance) {
	if i.Parent != "" {
		p.job.InheritingElements = append(p.job.InheritingElements, id)
	}
}

func (p *xmlParser) parseStep(e *element) (*jsl.Step, error) {
	where := "step " + e.attr("id")
	allowed := append([]string{"id", "next", "start-limit", "allow-start-if-complete"}, inheritableAttrs...)
	if err := checkAttrs(e, where, allowed, "id"); err != nil {
		return nil, err
	}
	if err := checkNoText(e, where); err != nil {
		return nil, err
	}
	inh, err := p.inheritance(e, where)
	if err != nil {
		return nil, err
	}
	s := &jsl.Step{
		Inheritance:          inh,
		Id:                   e.attr("id"),
		Next:                 e.attr("next"),
		StartLimit:           e.attr("start-limit"),
		AllowStartIfComplete: e.attr("allow-start-if-complete"),
	}
	p.noteInheriting(s.Id, inh)

	for _, c := range e.children {
		switch c.name {
		case "properties":
			if s.Properties != nil {
				return nil, duplicateElement(where, c)
			}
			s.Properties, err = p.parseProperties(c, where)
		case "listeners":
			if s.Listeners != nil {
				return nil, duplicateElement(where, c)
			}
			s.Listeners, err = p.parseListeners(c, where)
		case "batchlet":
			if s.Batchlet != nil {
				return nil, duplicateElement(where, c)
			}
			s.Batchlet, err = p.parseArtifact(c, where)
		case "chunk":
			if s.Chunk != nil {
				return nil, duplicateElement(where, c)
			}
			s.Chunk, err = p.parseChunk(c, where)
		case "partition":
			if s.Partition != nil {
				return nil, duplicateElement(where, c)
			}
			s.Partition, err = p.parsePartition(c, where)
		default:
			var t *jsl.Transition
			t, err = p.parseTransition(c, where)
			if err == nil {
				s.TransitionElements = append(s.TransitionElements, t)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *xmlParser) parseFlow(e *element) (*jsl.Flow, error) {
	where := "flow " + e.attr("id")
	if err := checkAttrs(e, where, append([]string{"id", "next"}, inheritableAttrs...), "id"); err != nil {
		return nil, err
	}
	if err := checkNoText(e, where); err != nil {
		return nil, err
	}
	inh, err := p.inheritance(e, where)
	if err != nil {
		return nil, err
	}
	f := &jsl.Flow{
		Inheritance: inh,
		Id:          e.attr("id"),
		Next:        e.attr("next"),
		Elements:    []jsl.JobElement{},
	}
	p.noteInheriting(f.Id, inh)

	for _, c := range e.children {
		switch c.name {
		case "step", "flow", "split", "decision":
			je, err := p.parseJobElement(c, where)
			if err != nil {
				return nil, err
			}
			f.Elements = append(f.Elements, je)
		case "properties", "listeners":
			return nil, errors.NewStructuralError(where, "flow cannot have <%s>", c.name)
		default:
			t, err := p.parseTransition(c, where)
			if err != nil {
				return nil, err
			}
			f.TransitionElements = append(f.TransitionElements, t)
		}
	}
	return f, nil
}

func (p *xmlParser) parseSplit(e *element) (*jsl.Split, error) {
	where := "split " + e.attr("id")
	if err := checkAttrs(e, where, []string{"id", "next"}, "id"); err != nil {
		return nil, err
	}
	if err := checkNoText(e, where); err != nil {
		return nil, err
	}
	s := &jsl.Split{
		Id:    e.attr("id"),
		Next:  e.attr("next"),
		Flows: []*jsl.Flow{},
	}
	for _, c := range e.children {
		switch c.name {
		case "flow":
			f, err := p.parseFlow(c)
			if err != nil {
				return nil, err
			}
			s.Flows = append(s.Flows, f)
		case "properties", "listeners":
			return nil, errors.NewStructuralError(where, "split cannot have <%s>", c.name)
		default:
			t, err := p.parseTransition(c, where)
			if err != nil {
				return nil, err
			}
			s.TransitionElements = append(s.TransitionElements, t)
		}
	}
	return s, nil
}

func (p *xmlParser) parseDecision(e *element) (*jsl.Decision, error) {
	where := "decision " + e.attr("id")
	if err := checkAttrs(e, where, []string{"id", "ref"}, "id", "ref"); err != nil {
		return nil, err
	}
	if err := checkNoText(e, where); err != nil {
		return nil, err
	}
	d := &jsl.Decision{
		Id:  e.attr("id"),
		Ref: e.attr("ref"),
	}
	for _, c := range e.children {
		if c.name == "properties" {
			if d.Properties != nil {
				return nil, duplicateElement(where, c)
			}
			props, err := p.parseProperties(c, where)
			if err != nil {
				return nil, err
			}
			d.Properties = props
			continue
		}
		t, err := p.parseTransition(c, where)
		if err != nil {
			return nil, err
		}
		d.TransitionElements = append(d.TransitionElements, t)
	}
	return d, nil
}

func (p *xmlParser) parseTransition(e *element, where string) (*jsl.Transition, error) {
	var t *jsl.Transition
	var err error
	switch e.name {
	case "next":
		err = checkAttrs(e, where, []string{"on", "to"}, "on", "to")
		t = &jsl.Transition{Type: jsl.TransitionNext, On: e.attr("on"), To: e.attr("to")}
	case "fail":
		err = checkAttrs(e, where, []string{"on", "exit-status"}, "on")
		t = &jsl.Transition{Type: jsl.TransitionFail, On: e.attr("on"), ExitStatus: e.attr("exit-status")}
	case "end":
		err = checkAttrs(e, where, []string{"on", "exit-status"}, "on")
		t = &jsl.Transition{Type: jsl.TransitionEnd, On: e.attr("on"), ExitStatus: e.attr("exit-status")}
	case "stop":
		err = checkAttrs(e, where, []string{"on", "exit-status", "restart"}, "on")
		t = &jsl.Transition{Type: jsl.TransitionStop, On: e.attr("on"), ExitStatus: e.attr("exit-status"), Restart: e.attr("restart")}
	default:
		return nil, unknownElement(where, e)
	}
	if err != nil {
		return nil, err
	}
	if len(e.children) > 0 {
		return nil, unknownElement(where, e.children[0])
	}
	return t, nil
}

func (p *xmlParser) parseChunk(e *element, where string) (*jsl.Chunk, error) {
	allowed := []string{"checkpoint-policy", "item-count", "time-limit", "skip-limit", "retry-limit"}
	if err := checkAttrs(e, where, allowed); err != nil {
		return nil, err
	}
	if err := checkNoText(e, where); err != nil {
		return nil, err
	}
	c := &jsl.Chunk{
		CheckpointPolicy: e.attr("checkpoint-policy"),
		ItemCount:        e.attr("item-count"),
		TimeLimit:        e.attr("time-limit"),
		SkipLimit:        e.attr("skip-limit"),
		RetryLimit:       e.attr("retry-limit"),
	}
	for _, child := range e.children {
		var artifact **jsl.RefArtifact
		var filter **jsl.ExceptionClassFilter
		switch child.name {
		case "reader":
			artifact = &c.Reader
		case "processor":
			artifact = &c.Processor
		case "writer":
			artifact = &c.Writer
		case "checkpoint-algorithm":
			artifact = &c.CheckpointAlgorithm
		case "skippable-exception-classes":
			filter = &c.SkippableExceptionClasses
		case "retryable-exception-classes":
			filter = &c.RetryableExceptionClasses
		case "no-rollback-exception-classes":
			filter = &c.NoRollbackExceptionClasses
		default:
			return nil, unknownElement(where, child)
		}

		var err error
		if artifact != nil {
			if *artifact != nil {
				return nil, duplicateElement(where, child)
			}
			*artifact, err = p.parseArtifact(child, where)
		} else {
			if *filter != nil {
				return nil, duplicateElement(where, child)
			}
			*filter, err = p.parseFilter(child, where)
		}
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (p *xmlParser) parseFilter(e *element, where string) (*jsl.ExceptionClassFilter, error) {
	if err := checkAttrs(e, where, []string{"merge"}); err != nil {
		return nil, err
	}
	merge, err := parseBool(where, "merge", e.attr("merge"))
	if err != nil {
		return nil, err
	}
	f := &jsl.ExceptionClassFilter{Merge: merge}
	for _, c := range e.children {
		if c.name != "include" && c.name != "exclude" {
			return nil, unknownElement(where, c)
		}
		if err := checkAttrs(c, where, []string{"class"}, "class"); err != nil {
			return nil, err
		}
		if c.name == "include" {
			f.Include = append(f.Include, strings.TrimSpace(c.attr("class")))
		} else {
			f.Exclude = append(f.Exclude, strings.TrimSpace(c.attr("class")))
		}
	}
	return f, nil
}

func (p *xmlParser) parsePartition(e *element, where string) (*jsl.Partition, error) {
	if err := checkAttrs(e, where, nil); err != nil {
		return nil, err
	}
	if err := checkNoText(e, where); err != nil {
		return nil, err
	}
	part := &jsl.Partition{}
	for _, c := range e.children {
		var artifact **jsl.RefArtifact
		switch c.name {
		case "mapper":
			artifact = &part.Mapper
		case "collector":
			artifact = &part.Collector
		case "analyzer":
			artifact = &part.Analyzer
		case "reducer":
			artifact = &part.Reducer
		case "plan":
			if part.Plan != nil {
				return nil, duplicateElement(where, c)
			}
			plan, err := p.parsePlan(c, where)
			if err != nil {
				return nil, err
			}
			part.Plan = plan
			continue
		default:
			return nil, unknownElement(where, c)
		}
		if *artifact != nil {
			return nil, duplicateElement(where, c)
		}
		a, err := p.parseArtifact(c, where)
		if err != nil {
			return nil, err
		}
		*artifact = a
	}
	return part, nil
}

func (p *xmlParser) parsePlan(e *element, where string) (*jsl.PartitionPlan, error) {
	if err := checkAttrs(e, where, []string{"partitions", "threads"}); err != nil {
		return nil, err
	}
	plan := &jsl.PartitionPlan{
		Partitions: e.attr("partitions"),
		Threads:    e.attr("threads"),
	}
	for _, c := range e.children {
		if c.name != "properties" {
			return nil, unknownElement(where, c)
		}
		props, err := p.parseProperties(c, where)
		if err != nil {
			return nil, err
		}
		plan.Properties = append(plan.Properties, props)
	}
	return plan, nil
}

// parseArtifact parses any element that references an artifact: batchlet,
// reader, processor, writer, checkpoint-algorithm, mapper, collector,
// analyzer, reducer and listener.
func (p *xmlParser) parseArtifact(e *element, where string) (*jsl.RefArtifact, error) {
	if err := checkAttrs(e, where, []string{"ref"}); err != nil {
		return nil, err
	}
	if err := checkNoText(e, where); err != nil {
		return nil, err
	}
	a := &jsl.RefArtifact{Ref: e.attr("ref")}
	for _, c := range e.children {
		switch c.name {
		case "properties":
			if a.Properties != nil {
				return nil, duplicateElement(where, c)
			}
			props, err := p.parseProperties(c, where)
			if err != nil {
				return nil, err
			}
			a.Properties = props
		case "script":
			if a.Script != nil {
				return nil, duplicateElement(where, c)
			}
			if err := checkAttrs(c, where, []string{"type", "src"}); err != nil {
				return nil, err
			}
			if len(c.children) > 0 {
				return nil, unknownElement(where, c.children[0])
			}
			a.Script = &jsl.Script{
				Type:    c.attr("type"),
				Src:     c.attr("src"),
				Content: strings.TrimSpace(c.text.String()),
			}
		default:
			return nil, unknownElement(where, c)
		}
	}
	return a, nil
}

func (p *xmlParser) parseListeners(e *element, where string) (*jsl.Listeners, error) {
	if err := checkAttrs(e, where, []string{"merge"}); err != nil {
		return nil, err
	}
	merge, err := parseBool(where, "merge", e.attr("merge"))
	if err != nil {
		return nil, err
	}
	l := &jsl.Listeners{Merge: merge, Listeners: []*jsl.RefArtifact{}}
	for _, c := range e.children {
		if c.name != "listener" {
			return nil, unknownElement(where, c)
		}
		a, err := p.parseArtifact(c, where)
		if err != nil {
			return nil, err
		}
		l.Listeners = append(l.Listeners, a)
	}
	return l, nil
}

func (p *xmlParser) parseProperties(e *element, where string) (*jsl.Properties, error) {
	if err := checkAttrs(e, where, []string{"partition", "merge"}); err != nil {
		return nil, err
	}
	if err := checkNoText(e, where); err != nil {
		return nil, err
	}
	merge, err := parseBool(where, "merge", e.attr("merge"))
	if err != nil {
		return nil, err
	}
	props := &jsl.Properties{
		Partition: e.attr("partition"),
		Merge:     merge,
		Entries:   []jsl.Property{},
	}
	for _, c := range e.children {
		if c.name != "property" {
			return nil, unknownElement(where, c)
		}
		if err := checkAttrs(c, where, []string{"name", "value"}, "name"); err != nil {
			return nil, err
		}
		props.Set(c.attr("name"), c.attr("value"))
	}
	return props, nil
}
