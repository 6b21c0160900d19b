// Copyright 2020, Square, Inc.

package expr

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/square/jsl/errors"
)

// Property categories.
const (
	JobParameters    = "jobParameters"
	JobProperties    = "jobProperties"
	SystemProperties = "systemProperties"
	PartitionPlan    = "partitionPlan"
)

// Evaluator evaluates strings with embedded expressions.
type Evaluator struct {
	// Lookup returns the raw value of a property. The value is evaluated in
	// turn, so it may contain expressions. Required.
	Lookup func(category, name string) (string, bool)

	// Skip, if set, returns true for categories whose expressions are kept
	// verbatim, e.g. partitionPlan before the partition is known.
	Skip func(category string) bool

	// Logger receives unresolved-expression and syntax warnings. If nil, the
	// standard logger is used.
	Logger *log.Entry
}

// Evaluate returns s with every expression replaced by its value. A
// reference that misses and has no default is replaced by "" and logged.
// The only error is errors.CyclicPropertyReferenceError.
func (e *Evaluator) Evaluate(s string) (string, error) {
	if !strings.Contains(s, exprStart) {
		return s, nil
	}
	return e.eval(s, true, nil)
}

func (e *Evaluator) logger() *log.Entry {
	if e.Logger != nil {
		return e.Logger
	}
	return log.NewEntry(log.StandardLogger())
}

// eval evaluates s. chain holds the raw text of the expressions being
// expanded, outermost first.
func (e *Evaluator) eval(s string, allowDefault bool, chain []string) (string, error) {
	t := Parse(s, allowDefault)
	for _, w := range t.Warnings {
		e.logger().WithField("expression", s).Warn(w)
	}
	if !t.HasRefs() {
		return s, nil
	}

	var out strings.Builder
	for _, seg := range t.Segments {
		ref := seg.Ref
		if ref == nil {
			out.WriteString(seg.Literal)
			continue
		}
		if e.Skip != nil && e.Skip(ref.Category) {
			out.WriteString(ref.Raw)
			continue
		}
		for _, inFlight := range chain {
			if inFlight == ref.Raw {
				return "", errors.CyclicPropertyReferenceError{Chain: extend(chain, ref.Raw)}
			}
		}

		if v, ok := e.Lookup(ref.Category, ref.Name); ok {
			resolved, err := e.eval(v, true, extend(chain, ref.Raw))
			if err != nil {
				return "", err
			}
			out.WriteString(resolved)
			continue
		}
		if ref.Default != nil {
			// No default within a default
			resolved, err := e.eval(*ref.Default, false, extend(chain, ref.Raw))
			if err != nil {
				return "", err
			}
			out.WriteString(resolved)
			continue
		}
		e.logger().WithFields(log.Fields{
			"expression": ref.Raw,
			"category":   ref.Category,
			"name":       ref.Name,
		}).Warn("unresolved expression, using empty string")
	}
	return out.String(), nil
}

// extend returns chain + raw without sharing chain's backing array.
func extend(chain []string, raw string) []string {
	c := make([]string, len(chain), len(chain)+1)
	copy(c, chain)
	return append(c, raw)
}
