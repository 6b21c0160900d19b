// Copyright 2020, Square, Inc.

package jsl

type TransitionType int

const (
	TransitionNext TransitionType = iota
	TransitionFail
	TransitionEnd
	TransitionStop
)

func (t TransitionType) String() string {
	switch t {
	case TransitionNext:
		return "next"
	case TransitionFail:
		return "fail"
	case TransitionEnd:
		return "end"
	case TransitionStop:
		return "stop"
	}
	return "unknown"
}

// Transition is one of next, fail, end or stop. On is a pattern matched by the
// runtime against the exit status of the element the transition belongs to.
//
//   next: On, To
//   fail: On, ExitStatus
//   end:  On, ExitStatus
//   stop: On, ExitStatus, Restart
type Transition struct {
	Type       TransitionType
	On         string
	To         string
	ExitStatus string
	Restart    string
}

func (t *Transition) Clone() *Transition {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// CloneTransitions copies transitions, keeping document order.
func CloneTransitions(transitions []*Transition) []*Transition {
	if transitions == nil {
		return nil
	}
	c := make([]*Transition, len(transitions))
	for i, t := range transitions {
		c[i] = t.Clone()
	}
	return c
}
