// Copyright 2020, Square, Inc.

package jsl

// Job is the root of a job definition.
type Job struct {
	Inheritance

	Id          string
	Restartable string // "true", "false", an expression, or "" (unset)
	Properties  *Properties
	Listeners   *Listeners
	Elements    []JobElement // steps, flows, splits and decisions in document order

	// JobXmlName is the name of the document the job was loaded from, if it
	// differs from Id.
	JobXmlName string

	// InheritingElements lists the ids of every element that declared a
	// parent, in document pre-order. The job itself, if it has a parent, is
	// listed first under its own id. These are references by id, not owned
	// nodes; they drive inheritance resolution and are emptied by it.
	InheritingElements []string
}

func (j *Job) ElementId() string { return j.Id }
func (j *Job) Kind() Kind { return KindJob }
func (j *Job) Transitions() []*Transition { return nil }

// Resolved returns true if neither the job nor any of its elements has a
// parent left to merge.
func (j *Job) Resolved() bool {
	if j.Parent != "" {
		return false
	}
	resolved := true
	Walk(j.Elements, func(e JobElement) bool {
		if ie, ok := e.(InheritableElement); ok && !ie.Inherits().Resolved() {
			resolved = false
		}
		return resolved
	})
	return resolved
}

// Clone returns a deep copy of the job. Nothing is shared with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	return &Job{
		Inheritance:        j.Inheritance,
		Id:                 j.Id,
		Restartable:        j.Restartable,
		Properties:         j.Properties.Clone(),
		Listeners:          j.Listeners.Clone(),
		Elements:           CloneElements(j.Elements),
		JobXmlName:         j.JobXmlName,
		InheritingElements: cloneStrings(j.InheritingElements),
	}
}

// FindStep returns the step with the given id anywhere in the job.
func (j *Job) FindStep(id string) (*Step, bool) {
	e, ok := IndexIds(j)[id]
	if !ok {
		return nil, false
	}
	s, ok := e.(*Step)
	return s, ok
}
