// Copyright 2020, Square, Inc.

package check

import (
	"testing"

	"github.com/go-test/deep"
)

var (
	jobA = "job-a"
)

func name(s string) *string { return &s }

func compareError(t *testing.T, err, expectedErr error, errMsg string) {
	t.Helper()
	if err == nil {
		t.Error(errMsg)
		return
	}
	switch expected := expectedErr.(type) {
	case InvalidValueError:
		got, ok := err.(InvalidValueError)
		if !ok {
			t.Errorf("expected InvalidValueError, got %T: %s", err, err)
			return
		}
		got.Expected = ""
		if diff := deep.Equal(&got, &expected); diff != nil {
			t.Error(diff)
		} else {
			t.Log(err.Error())
		}
	case MissingValueError:
		got, ok := err.(MissingValueError)
		if !ok {
			t.Errorf("expected MissingValueError, got %T: %s", err, err)
			return
		}
		got.Explanation = ""
		if diff := deep.Equal(&got, &expected); diff != nil {
			t.Error(diff)
		} else {
			t.Log(err.Error())
		}
	default:
		t.Errorf("expected error should be of type InvalidValueError or MissingValueError; got type %T: %s", expectedErr, expectedErr)
	}
}
