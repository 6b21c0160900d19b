// Copyright 2020, Square, Inc.

package jsl

// Flow sequences nested elements. It has no properties or listeners of its
// own.
type Flow struct {
	Inheritance

	Id                 string
	Next               string
	Elements           []JobElement
	TransitionElements []*Transition
}

func (f *Flow) ElementId() string { return f.Id }
func (f *Flow) Kind() Kind { return KindFlow }
func (f *Flow) Transitions() []*Transition { return f.TransitionElements }

func (f *Flow) Clone() *Flow {
	if f == nil {
		return nil
	}
	return &Flow{
		Inheritance:        f.Inheritance,
		Id:                 f.Id,
		Next:               f.Next,
		Elements:           CloneElements(f.Elements),
		TransitionElements: CloneTransitions(f.TransitionElements),
	}
}

// Split runs its flows in parallel. It has no properties of its own.
type Split struct {
	Id                 string
	Next               string
	Flows              []*Flow
	TransitionElements []*Transition
}

func (s *Split) ElementId() string { return s.Id }
func (s *Split) Kind() Kind { return KindSplit }
func (s *Split) Transitions() []*Transition { return s.TransitionElements }

func (s *Split) Clone() *Split {
	if s == nil {
		return nil
	}
	c := &Split{
		Id:                 s.Id,
		Next:               s.Next,
		TransitionElements: CloneTransitions(s.TransitionElements),
	}
	if s.Flows != nil {
		c.Flows = make([]*Flow, len(s.Flows))
		for i, f := range s.Flows {
			c.Flows[i] = f.Clone()
		}
	}
	return c
}

// Decision chooses the next element by calling the decider artifact Ref.
// Properties are the decider's properties.
type Decision struct {
	Id                 string
	Ref                string
	Properties         *Properties
	TransitionElements []*Transition
}

func (d *Decision) ElementId() string { return d.Id }
func (d *Decision) Kind() Kind { return KindDecision }
func (d *Decision) Transitions() []*Transition { return d.TransitionElements }

func (d *Decision) Clone() *Decision {
	if d == nil {
		return nil
	}
	return &Decision{
		Id:                 d.Id,
		Ref:                d.Ref,
		Properties:         d.Properties.Clone(),
		TransitionElements: CloneTransitions(d.TransitionElements),
	}
}
