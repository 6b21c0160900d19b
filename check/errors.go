// Copyright 2020, Square, Inc.

package check

import (
	"fmt"
	"sort"
	"strings"
)

func stringSetToArray(set map[string]bool) []string {
	arr := []string{}
	for v := range set {
		arr = append(arr, v)
	}
	sort.Strings(arr)
	return arr
}

func location(job string, element *string) string {
	if element == nil {
		return fmt.Sprintf("job %s", job)
	}
	return fmt.Sprintf("job %s, %s", job, *element)
}

/* =========================================================================== */

var _ error = InvalidValueError{}

type InvalidValueError struct {
	Job      string
	Element  *string // "step load", nil for the job itself
	Field    string
	Values   []string
	Expected string
}

func (e InvalidValueError) Error() string {
	values := fmt.Sprintf("\"%s\"", strings.Join(e.Values, "\", \""))
	return fmt.Sprintf("%s: invalid value(s) %s in field `%s`, expected %s",
		location(e.Job, e.Element), values, e.Field, e.Expected)
}

/* =========================================================================== */

var _ error = MissingValueError{}

type MissingValueError struct {
	Job         string
	Element     *string
	Field       string
	Explanation string
}

func (e MissingValueError) Error() string {
	var explanation string
	if e.Explanation != "" {
		explanation = fmt.Sprintf(": %s", e.Explanation)
	}
	return fmt.Sprintf("%s: field(s) `%s` missing%s", location(e.Job, e.Element), e.Field, explanation)
}
