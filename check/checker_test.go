// Copyright 2020, Square, Inc.

package check_test

import (
	"fmt"
	"testing"

	. "github.com/square/jsl/check"
	"github.com/square/jsl/jsl"
	"github.com/square/jsl/parser"
	"github.com/square/jsl/test"
)

// Dummy check objects that always fail or always pass.
type PassJobCheck struct{}

func (c PassJobCheck) CheckJob(job *jsl.Job) error {
	return nil
}

type PassElementCheck struct{}

func (c PassElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	return nil
}

var failJobCheckError = fmt.Errorf("FailJobCheck failed")
var failElementCheckError = fmt.Errorf("FailElementCheck failed")

type FailJobCheck struct{}

func (c FailJobCheck) CheckJob(job *jsl.Job) error {
	return failJobCheckError
}

type FailElementCheck struct{}

func (c FailElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	return failElementCheckError
}

// Dummy job with the absolute minimum of one element to give our dummy check
// objects something to run on.
var job = &jsl.Job{
	Id: "job",
	Elements: []jsl.JobElement{
		&jsl.Step{Id: "step", Batchlet: &jsl.RefArtifact{Ref: "b"}},
	},
}

/* ========================================================================== */
// The actual tests, which each (necessarily) have their own mock check factory.

/* ++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++ */
// Pass with no warnings.
type PassFact struct{}

func (f PassFact) MakeJobErrorChecks() ([]JobCheck, error) {
	return []JobCheck{PassJobCheck{}}, nil
}
func (f PassFact) MakeJobWarningChecks() ([]JobCheck, error) {
	return []JobCheck{PassJobCheck{}}, nil
}
func (f PassFact) MakeElementErrorChecks() ([]ElementCheck, error) {
	return []ElementCheck{PassElementCheck{}}, nil
}
func (f PassFact) MakeElementWarningChecks() ([]ElementCheck, error) {
	return []ElementCheck{PassElementCheck{}}, nil
}
func TestPassRunChecks(t *testing.T) {
	checker, err := NewChecker([]CheckFactory{PassFact{}})
	if err != nil {
		t.Fatalf("Error creating checker: %s", err)
	}
	results := checker.RunChecks(job)
	if results.AnyError {
		t.Errorf("RunChecks reports some error, expected success: %v", results.Results)
	}
	if results.AnyWarning {
		t.Errorf("RunChecks reports some warning, expected success: %v", results.Results)
	}
}

/* ++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++ */
// Pass, with warnings.
type PassWithWarning struct{}

func (f PassWithWarning) MakeJobErrorChecks() ([]JobCheck, error) {
	return []JobCheck{PassJobCheck{}}, nil
}
func (f PassWithWarning) MakeJobWarningChecks() ([]JobCheck, error) {
	return []JobCheck{FailJobCheck{}}, nil
}
func (f PassWithWarning) MakeElementErrorChecks() ([]ElementCheck, error) {
	return []ElementCheck{PassElementCheck{}}, nil
}
func (f PassWithWarning) MakeElementWarningChecks() ([]ElementCheck, error) {
	return []ElementCheck{FailElementCheck{}}, nil
}
func TestPassWithWarningRunChecks(t *testing.T) {
	checker, err := NewChecker([]CheckFactory{PassWithWarning{}})
	if err != nil {
		t.Fatalf("Error creating checker: %s", err)
	}
	results := checker.RunChecks(job)
	if results.AnyError {
		t.Errorf("RunChecks reports some error, expected success: %v", results.Results)
	}
	result, ok := results.Get("job")
	if !ok {
		t.Fatalf("no results for job")
	}
	if len(result.Warnings) != 2 {
		t.Errorf("got %d warnings, expected 2 (job and element): %v", len(result.Warnings), result.Warnings)
	}
}

/* ++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++ */
// Fail.
type FailFact struct{}

func (f FailFact) MakeJobErrorChecks() ([]JobCheck, error) {
	return []JobCheck{FailJobCheck{}}, nil
}
func (f FailFact) MakeJobWarningChecks() ([]JobCheck, error) {
	return []JobCheck{PassJobCheck{}}, nil
}
func (f FailFact) MakeElementErrorChecks() ([]ElementCheck, error) {
	return []ElementCheck{FailElementCheck{}}, nil
}
func (f FailFact) MakeElementWarningChecks() ([]ElementCheck, error) {
	return []ElementCheck{PassElementCheck{}}, nil
}
func TestFailRunChecks(t *testing.T) {
	checker, err := NewChecker([]CheckFactory{PassFact{}, FailFact{}})
	if err != nil {
		t.Fatalf("Error creating checker: %s", err)
	}
	results := checker.RunChecks(job)
	if !results.AnyError {
		t.Fatalf("RunChecks reports no error, expected failure")
	}
	result, _ := results.Get("job")
	if len(result.Errors) != 2 || result.Errors[0] != failJobCheckError || result.Errors[1] != failElementCheckError {
		t.Errorf("errors = %v, expected job then element failure", result.Errors)
	}
}

/* ++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++ */
// Factory error.
type BrokenFact struct{ PassFact }

func (f BrokenFact) MakeElementErrorChecks() ([]ElementCheck, error) {
	return nil, fmt.Errorf("broken")
}
func TestFactoryError(t *testing.T) {
	if _, err := NewChecker([]CheckFactory{BrokenFact{}}); err == nil {
		t.Error("NewChecker succeeded with a broken factory, expected error")
	}
}

/* ========================================================================== */
// Real checks on a real document.

func TestDefaultChecksPassSimple(t *testing.T) {
	job, err := parser.ParseJobFile(test.SpecPath + "/simple.xml")
	if err != nil {
		t.Fatal(err)
	}
	checker, err := NewChecker([]CheckFactory{BaseCheckFactory{}, DefaultCheckFactory{}})
	if err != nil {
		t.Fatal(err)
	}
	results := checker.RunChecks(job)
	if results.AnyError || results.AnyWarning {
		for _, r := range results.Results {
			t.Errorf("errors: %v, warnings: %v", r.Errors, r.Warnings)
		}
	}
}

func TestCheckResultsUnion(t *testing.T) {
	a := NewCheckResults()
	a.AddWarning("j1", failJobCheckError)
	b := NewCheckResults()
	b.AddError("j1", failElementCheckError)
	b.AddError("j2", failElementCheckError)

	a.Union(b)
	if !a.AnyError || !a.AnyWarning {
		t.Errorf("AnyError %t AnyWarning %t, expected both", a.AnyError, a.AnyWarning)
	}
	r, _ := a.Get("j1")
	if len(r.Errors) != 1 || len(r.Warnings) != 1 {
		t.Errorf("j1 result = %+v", r)
	}
	if _, ok := a.Get("j2"); !ok {
		t.Error("j2 not in union")
	}
}
