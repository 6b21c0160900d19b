// Copyright 2020, Square, Inc.

package jsl

import (
	"sort"

	"github.com/square/jsl/errors"
)

// Kind identifies the variant of a JobElement.
type Kind int

const (
	KindJob Kind = iota
	KindStep
	KindFlow
	KindSplit
	KindDecision
)

var kindNames = map[Kind]string{
	KindJob:      "job",
	KindStep:     "step",
	KindFlow:     "flow",
	KindSplit:    "split",
	KindDecision: "decision",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// A JobElement is a node in a job definition: *Job, *Step, *Flow, *Split or
// *Decision.
type JobElement interface {
	ElementId() string
	Kind() Kind

	// Transitions returns the element's transitions in document order. The
	// runtime evaluates them first match wins, so callers must not reorder.
	Transitions() []*Transition
}

// Inheritance is embedded by the elements that can extend another element:
// Job, Step and Flow.
type Inheritance struct {
	Abstract bool   // abstract elements are only used as parents
	Parent   string // id of the parent element; empty once resolved
	JslName  string // document holding the parent; empty or "*" means this document
}

func (i *Inheritance) Inherits() *Inheritance { return i }

// Resolved returns true if the element has no parent left to merge.
func (i *Inheritance) Resolved() bool { return i.Parent == "" }

// An InheritableElement is a JobElement that can declare a parent.
type InheritableElement interface {
	JobElement
	Inherits() *Inheritance
}

var (
	_ InheritableElement = &Job{}
	_ InheritableElement = &Step{}
	_ InheritableElement = &Flow{}
	_ JobElement         = &Split{}
	_ JobElement         = &Decision{}
)

// Walk calls fn for every element in elements and, recursively, for the
// elements nested in flows and splits, in document pre-order. If fn returns
// false the element's nested elements are skipped.
func Walk(elements []JobElement, fn func(JobElement) bool) {
	for _, e := range elements {
		if !fn(e) {
			continue
		}
		switch v := e.(type) {
		case *Flow:
			Walk(v.Elements, fn)
		case *Split:
			for _, f := range v.Flows {
				Walk([]JobElement{f}, fn)
			}
		}
	}
}

// IndexIds maps the id of every element nested in job to the element. If an
// id is declared more than once, the first in document order wins.
func IndexIds(job *Job) map[string]JobElement {
	index := map[string]JobElement{}
	Walk(job.Elements, func(e JobElement) bool {
		if _, ok := index[e.ElementId()]; !ok {
			index[e.ElementId()] = e
		}
		return true
	})
	return index
}

// CheckUniqueIds returns a DuplicateIdError listing every id that is declared
// more than once anywhere in job, including inside flows and splits. The job's
// own id counts: no element may reuse it.
func CheckUniqueIds(job *Job) error {
	seen := map[string]bool{job.Id: true}
	dupes := map[string]bool{}
	Walk(job.Elements, func(e JobElement) bool {
		id := e.ElementId()
		if seen[id] {
			dupes[id] = true
		}
		seen[id] = true
		return true
	})
	if len(dupes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(dupes))
	for id := range dupes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return errors.DuplicateIdError{Job: job.Id, Ids: ids}
}

// CloneElement returns a deep copy of e.
func CloneElement(e JobElement) JobElement {
	switch v := e.(type) {
	case *Job:
		return v.Clone()
	case *Step:
		return v.Clone()
	case *Flow:
		return v.Clone()
	case *Split:
		return v.Clone()
	case *Decision:
		return v.Clone()
	}
	return nil
}

// CloneElements returns a deep copy of elements, preserving order.
func CloneElements(elements []JobElement) []JobElement {
	if elements == nil {
		return nil
	}
	c := make([]JobElement, len(elements))
	for i, e := range elements {
		c[i] = CloneElement(e)
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// Bool returns a pointer to b, for setting merge flags.
func Bool(b bool) *bool { return &b }
