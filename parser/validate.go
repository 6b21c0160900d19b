// Copyright 2020, Square, Inc.

package parser

import (
	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

// validate enforces the structural rules shared by every document format.
// Rules that depend on inheritance (e.g. a concrete step needs a chunk or a
// batchlet) are left to the check package, because a child may still inherit
// the missing part.
func validate(job *jsl.Job) error {
	if job.Id == "" {
		return errors.NewStructuralError("job", "missing required attribute id")
	}
	if err := validateArtifacts("job "+job.Id, job.Listeners); err != nil {
		return err
	}
	var err error
	jsl.Walk(job.Elements, func(e jsl.JobElement) bool {
		if err != nil {
			return false
		}
		err = validateElement(e)
		return err == nil
	})
	return err
}

func validateElement(e jsl.JobElement) error {
	where := e.Kind().String() + " " + e.ElementId()
	if e.ElementId() == "" {
		return errors.NewStructuralError(e.Kind().String(), "missing required attribute id")
	}
	for _, t := range e.Transitions() {
		if err := validateTransition(where, t); err != nil {
			return err
		}
	}

	switch v := e.(type) {
	case *jsl.Step:
		if v.Chunk != nil && v.Batchlet != nil {
			return errors.NewStructuralError(where, "step has both chunk and batchlet")
		}
		if err := checkNextExclusive(where, v.Next, v.TransitionElements); err != nil {
			return err
		}
		if err := validateArtifacts(where, v.Listeners, v.Batchlet); err != nil {
			return err
		}
		if c := v.Chunk; c != nil {
			if err := validateArtifacts(where, nil, c.Reader, c.Processor, c.Writer, c.CheckpointAlgorithm); err != nil {
				return err
			}
		}
		if p := v.Partition; p != nil {
			if p.Mapper != nil && p.Plan != nil {
				return errors.NewStructuralError(where, "partition has both mapper and plan")
			}
			if err := validateArtifacts(where, nil, p.Mapper, p.Collector, p.Analyzer, p.Reducer); err != nil {
				return err
			}
		}
	case *jsl.Flow:
		return checkNextExclusive(where, v.Next, v.TransitionElements)
	case *jsl.Split:
		return checkNextExclusive(where, v.Next, v.TransitionElements)
	case *jsl.Decision:
		if v.Ref == "" {
			return errors.NewStructuralError(where, "missing required attribute ref")
		}
	}
	return nil
}

func validateTransition(where string, t *jsl.Transition) error {
	if t.On == "" {
		return errors.NewStructuralError(where, "%s transition missing required attribute on", t.Type)
	}
	if t.Type == jsl.TransitionNext && t.To == "" {
		return errors.NewStructuralError(where, "next transition on %q missing required attribute to", t.On)
	}
	return nil
}

// checkNextExclusive rejects a next attribute combined with next transition
// elements on the same node.
func checkNextExclusive(where, next string, transitions []*jsl.Transition) error {
	if next == "" {
		return nil
	}
	for _, t := range transitions {
		if t.Type == jsl.TransitionNext {
			return errors.NewStructuralError(where, "next attribute and next transition element are mutually exclusive")
		}
	}
	return nil
}

func validateArtifacts(where string, listeners *jsl.Listeners, artifacts ...*jsl.RefArtifact) error {
	if listeners != nil {
		artifacts = append(artifacts, listeners.Listeners...)
	}
	for _, a := range artifacts {
		if a == nil {
			continue
		}
		if a.Script != nil && a.Ref != "" {
			return errors.NewStructuralError(where, "artifact %s has both ref and script", a.Ref)
		}
		if a.Script == nil && a.Ref == "" {
			return errors.NewStructuralError(where, "artifact missing required attribute ref")
		}
	}
	return nil
}
