// Copyright 2020, Square, Inc.

package check

import (
	"github.com/square/jsl/jsl"
)

// Runs checks on jobs and their elements.
type Checker struct {
	// Checks to run. ErrorChecks are fatal on failure. Warnings are not.
	jobErrorChecks       []JobCheck
	jobWarningChecks     []JobCheck
	elementErrorChecks   []ElementCheck
	elementWarningChecks []ElementCheck
}

// Create a new Checker with the checks specified by check factories in list.
func NewChecker(checkFactories []CheckFactory) (*Checker, error) {
	checker := &Checker{
		jobErrorChecks:       []JobCheck{},
		jobWarningChecks:     []JobCheck{},
		elementErrorChecks:   []ElementCheck{},
		elementWarningChecks: []ElementCheck{},
	}

	for _, factory := range checkFactories {
		jec, err := factory.MakeJobErrorChecks()
		if err != nil {
			return nil, err
		}
		checker.jobErrorChecks = append(checker.jobErrorChecks, jec...)

		jwc, err := factory.MakeJobWarningChecks()
		if err != nil {
			return nil, err
		}
		checker.jobWarningChecks = append(checker.jobWarningChecks, jwc...)

		eec, err := factory.MakeElementErrorChecks()
		if err != nil {
			return nil, err
		}
		checker.elementErrorChecks = append(checker.elementErrorChecks, eec...)

		ewc, err := factory.MakeElementWarningChecks()
		if err != nil {
			return nil, err
		}
		checker.elementWarningChecks = append(checker.elementWarningChecks, ewc...)
	}

	return checker, nil
}

// Runs checks on job and every element in it, nested ones included. Results
// are keyed by job id.
func (checker *Checker) RunChecks(job *jsl.Job) *CheckResults {
	results := NewCheckResults()

	for _, jobCheck := range checker.jobErrorChecks {
		if err := jobCheck.CheckJob(job); err != nil {
			results.AddError(job.Id, err)
		}
	}
	for _, jobCheck := range checker.jobWarningChecks {
		if err := jobCheck.CheckJob(job); err != nil {
			results.AddWarning(job.Id, err)
		}
	}

	jsl.Walk(job.Elements, func(e jsl.JobElement) bool {
		for _, elementCheck := range checker.elementErrorChecks {
			if err := elementCheck.CheckElement(job.Id, e); err != nil {
				results.AddError(job.Id, err)
			}
		}
		for _, elementCheck := range checker.elementWarningChecks {
			if err := elementCheck.CheckElement(job.Id, e); err != nil {
				results.AddWarning(job.Id, err)
			}
		}
		return true
	})

	return results
}
