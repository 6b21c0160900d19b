// Copyright 2020, Square, Inc.

package check

import (
	"fmt"

	"github.com/square/jsl/artifacts"
	"github.com/square/jsl/jsl"
)

type JobCheck interface {
	CheckJob(job *jsl.Job) error
}

// siblings calls fn for every list of elements that share a scope: the job's
// elements, and the elements of each flow at any depth (split flows too).
func siblings(job *jsl.Job, fn func(elements []jsl.JobElement)) {
	fn(job.Elements)
	jsl.Walk(job.Elements, func(e jsl.JobElement) bool {
		if f, ok := e.(*jsl.Flow); ok {
			fn(f.Elements)
		}
		return true
	})
}

func nextOf(e jsl.JobElement) string {
	switch v := e.(type) {
	case *jsl.Step:
		return v.Next
	case *jsl.Flow:
		return v.Next
	case *jsl.Split:
		return v.Next
	}
	return ""
}

// targets returns the ids e can transition to within its scope.
func targets(e jsl.JobElement) []string {
	var to []string
	if next := nextOf(e); next != "" {
		to = append(to, next)
	}
	for _, t := range e.Transitions() {
		if t.Type == jsl.TransitionNext && t.To != "" {
			to = append(to, t.To)
		}
	}
	return to
}

/* ========================================================================== */
type ResolvedJobCheck struct{}

/* A template has no parents left. */
func (check ResolvedJobCheck) CheckJob(job *jsl.Job) error {
	if job.Resolved() {
		return nil
	}
	unresolved := []string{}
	if job.Parent != "" {
		unresolved = append(unresolved, "job "+job.Id)
	}
	jsl.Walk(job.Elements, func(e jsl.JobElement) bool {
		if ie, ok := e.(jsl.InheritableElement); ok && !ie.Inherits().Resolved() {
			unresolved = append(unresolved, *elementName(e))
		}
		return true
	})
	return InvalidValueError{
		Job:      job.Id,
		Field:    "parent",
		Values:   unresolved,
		Expected: "inheritance resolved before checking",
	}
}

/* ========================================================================== */
type TransitionTargetsJobCheck struct{}

/* next and transition targets are concrete elements of the same scope; restart
   targets are elements anywhere in the job. */
func (check TransitionTargetsJobCheck) CheckJob(job *jsl.Job) error {
	values := []string{}
	siblings(job, func(elements []jsl.JobElement) {
		scope := map[string]jsl.JobElement{}
		for _, e := range elements {
			scope[e.ElementId()] = e
		}
		for _, e := range elements {
			for _, to := range targets(e) {
				if isExpression(to) {
					continue
				}
				target, ok := scope[to]
				if !ok || isAbstract(target) {
					values = append(values, fmt.Sprintf("%s -> %s", *elementName(e), to))
				}
			}
		}
	})

	index := jsl.IndexIds(job)
	jsl.Walk(job.Elements, func(e jsl.JobElement) bool {
		for _, t := range e.Transitions() {
			if t.Type != jsl.TransitionStop || t.Restart == "" || isExpression(t.Restart) {
				continue
			}
			if _, ok := index[t.Restart]; !ok {
				values = append(values, fmt.Sprintf("%s restart %s", *elementName(e), t.Restart))
			}
		}
		return true
	})

	if len(values) > 0 {
		return InvalidValueError{
			Job:      job.Id,
			Field:    "next, to, restart",
			Values:   values,
			Expected: "ids of concrete elements in the same job or flow",
		}
	}
	return nil
}

/* ========================================================================== */
type ArtifactsRegisteredJobCheck struct {
	Registry artifacts.Registry
}

/* Every artifact ref resolves. */
func (check ArtifactsRegisteredJobCheck) CheckJob(job *jsl.Job) error {
	missing := artifacts.Missing(check.Registry, job)
	if len(missing) > 0 {
		return InvalidValueError{
			Job:      job.Id,
			Field:    "ref",
			Values:   missing,
			Expected: "refs declared in batch artifacts",
		}
	}
	return nil
}

/* ========================================================================== */
type HasElementsJobCheck struct{}

/* A concrete job has something to run. */
func (check HasElementsJobCheck) CheckJob(job *jsl.Job) error {
	if job.Abstract || len(job.Elements) > 0 {
		return nil
	}
	return MissingValueError{
		Job:         job.Id,
		Field:       "step, flow, split, decision",
		Explanation: "job has nothing to run",
	}
}

/* ========================================================================== */
type UnreachableElementJobCheck struct{}

/* Execution starts at the first concrete element of a scope and follows next
   and transitions; a concrete element nothing leads to never runs. */
func (check UnreachableElementJobCheck) CheckJob(job *jsl.Job) error {
	values := []string{}
	siblings(job, func(elements []jsl.JobElement) {
		reached := map[string]bool{}
		first := true
		for _, e := range elements {
			if isAbstract(e) {
				continue
			}
			if first {
				reached[e.ElementId()] = true
				first = false
			}
			for _, to := range targets(e) {
				reached[to] = true
			}
			for _, t := range e.Transitions() {
				if t.Restart != "" {
					reached[t.Restart] = true
				}
			}
		}
		for _, e := range elements {
			if !isAbstract(e) && !reached[e.ElementId()] {
				values = append(values, *elementName(e))
			}
		}
	})
	if len(values) > 0 {
		return InvalidValueError{
			Job:      job.Id,
			Field:    "next, to",
			Values:   values,
			Expected: "every concrete element reachable from the first",
		}
	}
	return nil
}
