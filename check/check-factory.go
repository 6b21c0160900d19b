// Copyright 2020, Square, Inc.

package check

import (
	"github.com/square/jsl/artifacts"
)

// Generates static checks to be performed on resolved jobs (templates).
//
// Errors are mistakes in a job that the execution runtime cannot run, for
// example a chunk step with no reader. A job with any error is not published
// as a template.
//
// Warnings identify probable mistakes, for example a transition that can
// never match because a catch-all transition comes before it. Warnings are
// logged but the template is published.
type CheckFactory interface {
	MakeJobErrorChecks() ([]JobCheck, error)
	MakeJobWarningChecks() ([]JobCheck, error)
	MakeElementErrorChecks() ([]ElementCheck, error)
	MakeElementWarningChecks() ([]ElementCheck, error)
}

// The absolute minimum of checks for a job to run.
type BaseCheckFactory struct {
	// If set, every artifact ref must resolve.
	Registry artifacts.Registry
}

func (c BaseCheckFactory) MakeJobErrorChecks() ([]JobCheck, error) {
	checks := []JobCheck{
		ResolvedJobCheck{},
		TransitionTargetsJobCheck{},
	}
	if c.Registry != nil {
		checks = append(checks, ArtifactsRegisteredJobCheck{Registry: c.Registry})
	}
	return checks, nil
}

func (c BaseCheckFactory) MakeJobWarningChecks() ([]JobCheck, error) {
	return []JobCheck{}, nil
}

func (c BaseCheckFactory) MakeElementErrorChecks() ([]ElementCheck, error) {
	return []ElementCheck{
		StepHasArtifactElementCheck{},
		ChunkHasReaderWriterElementCheck{},
		ValidCheckpointPolicyElementCheck{},
		PartitionPlanXorMapperElementCheck{},
		SplitHasFlowsElementCheck{},
		DecisionHasRefElementCheck{},
	}, nil
}

func (c BaseCheckFactory) MakeElementWarningChecks() ([]ElementCheck, error) {
	return []ElementCheck{}, nil
}

// Some default checks. Not strictly necessary for a job to run, but generally
// reasonable.
type DefaultCheckFactory struct{}

func (c DefaultCheckFactory) MakeJobErrorChecks() ([]JobCheck, error) {
	return []JobCheck{
		HasElementsJobCheck{},
	}, nil
}

func (c DefaultCheckFactory) MakeJobWarningChecks() ([]JobCheck, error) {
	return []JobCheck{
		UnreachableElementJobCheck{},
	}, nil
}

func (c DefaultCheckFactory) MakeElementErrorChecks() ([]ElementCheck, error) {
	return []ElementCheck{
		ValidLimitsElementCheck{},
	}, nil
}

func (c DefaultCheckFactory) MakeElementWarningChecks() ([]ElementCheck, error) {
	return []ElementCheck{
		CatchAllLastElementCheck{},
		ThreadsNotAbovePartitionsElementCheck{},
	}, nil
}
