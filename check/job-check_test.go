// Copyright 2020, Square, Inc.

package check

import (
	"testing"

	"github.com/square/jsl/artifacts"
	"github.com/square/jsl/jsl"
)

func batchlet(id, next string) *jsl.Step {
	return &jsl.Step{Id: id, Next: next, Batchlet: &jsl.RefArtifact{Ref: id + "Batchlet"}}
}

func TestFailResolvedJobCheck(t *testing.T) {
	check := ResolvedJobCheck{}
	step := batchlet("s", "")
	step.Parent = "base"
	job := &jsl.Job{Id: jobA, Elements: []jsl.JobElement{step}}
	expectedErr := InvalidValueError{
		Job:    jobA,
		Field:  "parent",
		Values: []string{"step s"},
	}

	err := check.CheckJob(job)
	compareError(t, err, expectedErr, "accepted unresolved job, expected error")
}

func TestFailTransitionTargetsJobCheck(t *testing.T) {
	check := TransitionTargetsJobCheck{}
	abstract := batchlet("base", "")
	abstract.Abstract = true
	inner := batchlet("inner", "")
	job := &jsl.Job{
		Id: jobA,
		Elements: []jsl.JobElement{
			batchlet("a", "nope"),
			batchlet("b", "base"),
			abstract,
			&jsl.Flow{Id: "f", Elements: []jsl.JobElement{inner}},
			&jsl.Decision{
				Id:  "d",
				Ref: "decider",
				TransitionElements: []*jsl.Transition{
					{Type: jsl.TransitionNext, On: "X", To: "inner"},
					{Type: jsl.TransitionStop, On: "*", Restart: "inner"},
				},
			},
		},
	}
	expectedErr := InvalidValueError{
		Job:    jobA,
		Field:  "next, to, restart",
		Values: []string{"step a -> nope", "step b -> base", "decision d -> inner"},
	}

	err := check.CheckJob(job)
	compareError(t, err, expectedErr, "accepted invalid transition targets, expected error")
}

func TestPassTransitionTargetsJobCheckExpression(t *testing.T) {
	check := TransitionTargetsJobCheck{}
	job := &jsl.Job{Id: jobA, Elements: []jsl.JobElement{batchlet("a", "#{jobParameters['next']}")}}
	if err := check.CheckJob(job); err != nil {
		t.Errorf("expression target failed check, expected success: %s", err)
	}
}

func TestFailArtifactsRegisteredJobCheck(t *testing.T) {
	check := ArtifactsRegisteredJobCheck{
		Registry: artifacts.NewRegistry(artifacts.BatchArtifacts{"aBatchlet": "com.example.A"}),
	}
	job := &jsl.Job{Id: jobA, Elements: []jsl.JobElement{batchlet("a", "b"), batchlet("b", "")}}
	expectedErr := InvalidValueError{
		Job:    jobA,
		Field:  "ref",
		Values: []string{"bBatchlet"},
	}

	err := check.CheckJob(job)
	compareError(t, err, expectedErr, "accepted unregistered artifact, expected error")
}

func TestFailHasElementsJobCheck(t *testing.T) {
	check := HasElementsJobCheck{}
	expectedErr := MissingValueError{
		Job:   jobA,
		Field: "step, flow, split, decision",
	}

	err := check.CheckJob(&jsl.Job{Id: jobA})
	compareError(t, err, expectedErr, "accepted job with no elements, expected error")

	abstract := &jsl.Job{Id: jobA, Inheritance: jsl.Inheritance{Abstract: true}}
	if err := check.CheckJob(abstract); err != nil {
		t.Errorf("abstract job failed check, expected success: %s", err)
	}
}

func TestFailUnreachableElementJobCheck(t *testing.T) {
	check := UnreachableElementJobCheck{}
	job := &jsl.Job{
		Id: jobA,
		Elements: []jsl.JobElement{
			batchlet("a", "c"),
			batchlet("b", ""),
			batchlet("c", ""),
		},
	}
	expectedErr := InvalidValueError{
		Job:    jobA,
		Field:  "next, to",
		Values: []string{"step b"},
	}

	err := check.CheckJob(job)
	compareError(t, err, expectedErr, "accepted unreachable step, expected warning")
}
