// Copyright 2017-2020, Square, Inc.

// Package errors provides the errors returned while building and resolving job
// definitions. All errors implement the error interface and return a terse
// message; callers usually report them in context, e.g. "job foo: ...".
package errors

import (
	"fmt"
	"strings"
)

var _ error = StructuralError{}

// StructuralError is a malformed document or definition: an unknown element or
// attribute, a missing required attribute, or mutually exclusive constructs
// both present. No partial result is usable when it's returned.
type StructuralError struct {
	Document string // document name or path, if known
	Element  string // element kind or id where the problem was found, if known
	Message  string
}

func NewStructuralError(element, format string, args ...interface{}) StructuralError {
	return StructuralError{
		Element: element,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e StructuralError) Error() string {
	var loc []string
	if e.Document != "" {
		loc = append(loc, "document "+e.Document)
	}
	if e.Element != "" {
		loc = append(loc, e.Element)
	}
	if len(loc) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", strings.Join(loc, ", "), e.Message)
}

// --------------------------------------------------------------------------

var _ error = DuplicateIdError{}

type DuplicateIdError struct {
	Job string
	Ids []string
}

func (e DuplicateIdError) Error() string {
	return fmt.Sprintf("job %s: id(s) \"%s\" declared more than once", e.Job, strings.Join(e.Ids, "\", \""))
}

// --------------------------------------------------------------------------

var _ error = CyclicInheritanceError{}

// CyclicInheritanceError is returned when an element's parent chain leads back
// to itself. Chain is the full chain of ids, the repeated id last.
type CyclicInheritanceError struct {
	Chain []string
}

func (e CyclicInheritanceError) Error() string {
	return fmt.Sprintf("cyclic inheritance: %s", strings.Join(e.Chain, " -> "))
}

// --------------------------------------------------------------------------

var _ error = CyclicPropertyReferenceError{}

// CyclicPropertyReferenceError is returned when a property expression, while
// being expanded, refers back to itself. Chain holds the in-flight expressions
// in expansion order, the repeated expression last.
type CyclicPropertyReferenceError struct {
	Chain []string
}

func (e CyclicPropertyReferenceError) Error() string {
	return fmt.Sprintf("cyclic property reference: %s", strings.Join(e.Chain, " -> "))
}

// --------------------------------------------------------------------------

var _ error = JobNotFound{}

type JobNotFound struct {
	Name string
}

func (e JobNotFound) Error() string {
	return fmt.Sprintf("job document %s not found", e.Name)
}

// --------------------------------------------------------------------------

var _ error = ArtifactNotFound{}

type ArtifactNotFound struct {
	Ref string
}

func (e ArtifactNotFound) Error() string {
	return fmt.Sprintf("batch artifact %s not found", e.Ref)
}
