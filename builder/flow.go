// Copyright 2020, Square, Inc.

package builder

import (
	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

// FlowBuilder builds a *jsl.Flow.
type FlowBuilder struct {
	flow  *jsl.Flow
	where string
	err   error
}

func NewFlow(id string) *FlowBuilder {
	b := &FlowBuilder{
		flow:  &jsl.Flow{Id: id, Elements: []jsl.JobElement{}},
		where: "flow " + id,
	}
	if id == "" {
		b.err = errors.NewStructuralError("flow", "missing required attribute id")
	}
	return b
}

func (b *FlowBuilder) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *FlowBuilder) add(e jsl.JobElement, err error) {
	if err != nil {
		b.setErr(err)
		return
	}
	b.flow.Elements = append(b.flow.Elements, e)
}

func (b *FlowBuilder) Step(s *StepBuilder) *FlowBuilder {
	step, err := s.Build()
	b.add(step, err)
	return b
}

func (b *FlowBuilder) Flow(f *FlowBuilder) *FlowBuilder {
	flow, err := f.Build()
	b.add(flow, err)
	return b
}

func (b *FlowBuilder) Split(s *SplitBuilder) *FlowBuilder {
	split, err := s.Build()
	b.add(split, err)
	return b
}

func (b *FlowBuilder) Decision(d *DecisionBuilder) *FlowBuilder {
	decision, err := d.Build()
	b.add(decision, err)
	return b
}

func (b *FlowBuilder) Next(id string) *FlowBuilder {
	b.flow.Next = id
	return b
}

func (b *FlowBuilder) NextOn(on, to string) *FlowBuilder {
	return b.addTransition(jsl.TransitionNext, on, to, "", "")
}

func (b *FlowBuilder) EndOn(on, exitStatus string) *FlowBuilder {
	return b.addTransition(jsl.TransitionEnd, on, "", exitStatus, "")
}

func (b *FlowBuilder) FailOn(on, exitStatus string) *FlowBuilder {
	return b.addTransition(jsl.TransitionFail, on, "", exitStatus, "")
}

func (b *FlowBuilder) StopOn(on, exitStatus, restart string) *FlowBuilder {
	return b.addTransition(jsl.TransitionStop, on, "", exitStatus, restart)
}

func (b *FlowBuilder) addTransition(t jsl.TransitionType, on, to, exitStatus, restart string) *FlowBuilder {
	tr, err := transition(b.where, t, on, to, exitStatus, restart)
	b.setErr(err)
	b.flow.TransitionElements = append(b.flow.TransitionElements, tr)
	return b
}

func (b *FlowBuilder) Build() (*jsl.Flow, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := checkNext(b.where, b.flow.Next, b.flow.TransitionElements); err != nil {
		return nil, err
	}
	return b.flow.Clone(), nil
}

// --------------------------------------------------------------------------

// SplitBuilder builds a *jsl.Split, whose flows run concurrently.
type SplitBuilder struct {
	split *jsl.Split
	where string
	err   error
}

func NewSplit(id string) *SplitBuilder {
	b := &SplitBuilder{
		split: &jsl.Split{Id: id, Flows: []*jsl.Flow{}},
		where: "split " + id,
	}
	if id == "" {
		b.err = errors.NewStructuralError("split", "missing required attribute id")
	}
	return b
}

func (b *SplitBuilder) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *SplitBuilder) Flow(f *FlowBuilder) *SplitBuilder {
	flow, err := f.Build()
	if err != nil {
		b.setErr(err)
		return b
	}
	b.split.Flows = append(b.split.Flows, flow)
	return b
}

func (b *SplitBuilder) Next(id string) *SplitBuilder {
	b.split.Next = id
	return b
}

func (b *SplitBuilder) NextOn(on, to string) *SplitBuilder {
	return b.addTransition(jsl.TransitionNext, on, to, "", "")
}

func (b *SplitBuilder) EndOn(on, exitStatus string) *SplitBuilder {
	return b.addTransition(jsl.TransitionEnd, on, "", exitStatus, "")
}

func (b *SplitBuilder) FailOn(on, exitStatus string) *SplitBuilder {
	return b.addTransition(jsl.TransitionFail, on, "", exitStatus, "")
}

func (b *SplitBuilder) StopOn(on, exitStatus, restart string) *SplitBuilder {
	return b.addTransition(jsl.TransitionStop, on, "", exitStatus, restart)
}

func (b *SplitBuilder) addTransition(t jsl.TransitionType, on, to, exitStatus, restart string) *SplitBuilder {
	tr, err := transition(b.where, t, on, to, exitStatus, restart)
	b.setErr(err)
	b.split.TransitionElements = append(b.split.TransitionElements, tr)
	return b
}

func (b *SplitBuilder) Build() (*jsl.Split, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := checkNext(b.where, b.split.Next, b.split.TransitionElements); err != nil {
		return nil, err
	}
	return b.split.Clone(), nil
}

// --------------------------------------------------------------------------

// DecisionBuilder builds a *jsl.Decision. ref is the decider artifact.
type DecisionBuilder struct {
	decision *jsl.Decision
	where    string
	err      error
}

func NewDecision(id, ref string) *DecisionBuilder {
	b := &DecisionBuilder{
		decision: &jsl.Decision{Id: id, Ref: ref},
		where:    "decision " + id,
	}
	switch {
	case id == "":
		b.err = errors.NewStructuralError("decision", "missing required attribute id")
	case ref == "":
		b.err = errors.NewStructuralError(b.where, "missing required attribute ref")
	}
	return b
}

func (b *DecisionBuilder) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *DecisionBuilder) Property(name, value string) *DecisionBuilder {
	b.decision.Properties = setProperty(b.decision.Properties, name, value)
	return b
}

func (b *DecisionBuilder) NextOn(on, to string) *DecisionBuilder {
	return b.addTransition(jsl.TransitionNext, on, to, "", "")
}

func (b *DecisionBuilder) EndOn(on, exitStatus string) *DecisionBuilder {
	return b.addTransition(jsl.TransitionEnd, on, "", exitStatus, "")
}

func (b *DecisionBuilder) FailOn(on, exitStatus string) *DecisionBuilder {
	return b.addTransition(jsl.TransitionFail, on, "", exitStatus, "")
}

func (b *DecisionBuilder) StopOn(on, exitStatus, restart string) *DecisionBuilder {
	return b.addTransition(jsl.TransitionStop, on, "", exitStatus, restart)
}

func (b *DecisionBuilder) addTransition(t jsl.TransitionType, on, to, exitStatus, restart string) *DecisionBuilder {
	tr, err := transition(b.where, t, on, to, exitStatus, restart)
	b.setErr(err)
	b.decision.TransitionElements = append(b.decision.TransitionElements, tr)
	return b
}

func (b *DecisionBuilder) Build() (*jsl.Decision, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.decision.Clone(), nil
}
