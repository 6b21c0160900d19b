// Copyright 2020, Square, Inc.

package check

import (
	"strconv"
	"strings"

	"github.com/square/jsl/jsl"
)

type ElementCheck interface {
	CheckElement(jobId string, e jsl.JobElement) error
}

func elementName(e jsl.JobElement) *string {
	name := e.Kind().String() + " " + e.ElementId()
	return &name
}

func isAbstract(e jsl.JobElement) bool {
	ie, ok := e.(jsl.InheritableElement)
	return ok && ie.Inherits().Abstract
}

// isExpression reports whether v is still a property expression, which can
// only be checked once resolved.
func isExpression(v string) bool {
	return strings.Contains(v, "#{")
}

/* ========================================================================== */
type StepHasArtifactElementCheck struct{}

/* A concrete step has exactly one of chunk and batchlet. */
func (check StepHasArtifactElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	step, ok := e.(*jsl.Step)
	if !ok || step.Abstract {
		return nil
	}
	if step.Chunk == nil && step.Batchlet == nil {
		return MissingValueError{
			Job:         jobId,
			Element:     elementName(e),
			Field:       "chunk, batchlet",
			Explanation: "a step must have a chunk or a batchlet, declared or inherited",
		}
	}
	if step.Chunk != nil && step.Batchlet != nil {
		return InvalidValueError{
			Job:      jobId,
			Element:  elementName(e),
			Field:    "chunk, batchlet",
			Values:   []string{"chunk", "batchlet"},
			Expected: "one of chunk or batchlet",
		}
	}
	return nil
}

/* ========================================================================== */
type ChunkHasReaderWriterElementCheck struct{}

/* A concrete chunk step has a reader and a writer; the processor is optional. */
func (check ChunkHasReaderWriterElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	step, ok := e.(*jsl.Step)
	if !ok || step.Abstract || step.Chunk == nil {
		return nil
	}
	var missing []string
	if step.Chunk.Reader == nil {
		missing = append(missing, "reader")
	}
	if step.Chunk.Writer == nil {
		missing = append(missing, "writer")
	}
	if len(missing) > 0 {
		return MissingValueError{
			Job:     jobId,
			Element: elementName(e),
			Field:   strings.Join(missing, ", "),
		}
	}
	return nil
}

/* ========================================================================== */
type ValidCheckpointPolicyElementCheck struct{}

/* `checkpoint-policy: (item | custom)`, and custom needs a checkpoint-algorithm. */
func (check ValidCheckpointPolicyElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	step, ok := e.(*jsl.Step)
	if !ok || step.Chunk == nil {
		return nil
	}
	c := step.Chunk
	switch {
	case c.CheckpointPolicy == "", c.CheckpointPolicy == "item", isExpression(c.CheckpointPolicy):
		return nil
	case c.CheckpointPolicy == "custom":
		if c.CheckpointAlgorithm == nil && !step.Abstract {
			return MissingValueError{
				Job:         jobId,
				Element:     elementName(e),
				Field:       "checkpoint-algorithm",
				Explanation: "required by checkpoint-policy custom",
			}
		}
		return nil
	}
	return InvalidValueError{
		Job:      jobId,
		Element:  elementName(e),
		Field:    "checkpoint-policy",
		Values:   []string{c.CheckpointPolicy},
		Expected: "(item | custom)",
	}
}

/* ========================================================================== */
type PartitionPlanXorMapperElementCheck struct{}

/* A partition has a plan or a mapper, not both. */
func (check PartitionPlanXorMapperElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	step, ok := e.(*jsl.Step)
	if !ok || step.Partition == nil {
		return nil
	}
	p := step.Partition
	if p.Mapper == nil && p.Plan == nil {
		return MissingValueError{
			Job:         jobId,
			Element:     elementName(e),
			Field:       "mapper, plan",
			Explanation: "a partition needs a mapper or a plan",
		}
	}
	if p.Mapper != nil && p.Plan != nil {
		return InvalidValueError{
			Job:      jobId,
			Element:  elementName(e),
			Field:    "mapper, plan",
			Values:   []string{p.Mapper.Ref, "plan"},
			Expected: "one of mapper or plan",
		}
	}
	return nil
}

/* ========================================================================== */
type SplitHasFlowsElementCheck struct{}

func (check SplitHasFlowsElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	split, ok := e.(*jsl.Split)
	if !ok || len(split.Flows) > 0 {
		return nil
	}
	return MissingValueError{
		Job:     jobId,
		Element: elementName(e),
		Field:   "flow",
	}
}

/* ========================================================================== */
type DecisionHasRefElementCheck struct{}

func (check DecisionHasRefElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	d, ok := e.(*jsl.Decision)
	if !ok || d.Ref != "" {
		return nil
	}
	return MissingValueError{
		Job:     jobId,
		Element: elementName(e),
		Field:   "ref",
	}
}

/* ========================================================================== */
type ValidLimitsElementCheck struct{}

/* Limits and counts are non-negative integers, or expressions. */
func (check ValidLimitsElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	step, ok := e.(*jsl.Step)
	if !ok {
		return nil
	}
	type limit struct {
		field string
		value string
	}
	limits := []limit{{"start-limit", step.StartLimit}}
	if c := step.Chunk; c != nil {
		limits = append(limits,
			limit{"item-count", c.ItemCount},
			limit{"time-limit", c.TimeLimit},
			limit{"skip-limit", c.SkipLimit},
			limit{"retry-limit", c.RetryLimit},
		)
	}
	if p := step.Partition; p != nil && p.Plan != nil {
		limits = append(limits,
			limit{"partitions", p.Plan.Partitions},
			limit{"threads", p.Plan.Threads},
		)
	}

	var fields, values []string
	for _, l := range limits {
		if l.value == "" || isExpression(l.value) {
			continue
		}
		if n, err := strconv.Atoi(l.value); err != nil || n < 0 {
			fields = append(fields, l.field)
			values = append(values, l.value)
		}
	}
	if len(values) > 0 {
		return InvalidValueError{
			Job:      jobId,
			Element:  elementName(e),
			Field:    strings.Join(fields, ", "),
			Values:   values,
			Expected: "non-negative integer(s)",
		}
	}
	return nil
}

/* ========================================================================== */
type CatchAllLastElementCheck struct{}

/* Transitions are matched in order, so any after on="*" never match. */
func (check CatchAllLastElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	var shadowed []string
	catchAll := false
	for _, t := range e.Transitions() {
		if catchAll {
			shadowed = append(shadowed, t.On)
		}
		if t.On == "*" {
			catchAll = true
		}
	}
	if len(shadowed) > 0 {
		return InvalidValueError{
			Job:      jobId,
			Element:  elementName(e),
			Field:    "on",
			Values:   shadowed,
			Expected: "no transitions after a catch-all transition (on=\"*\")",
		}
	}
	return nil
}

/* ========================================================================== */
type ThreadsNotAbovePartitionsElementCheck struct{}

/* More threads than partitions leaves threads idle. */
func (check ThreadsNotAbovePartitionsElementCheck) CheckElement(jobId string, e jsl.JobElement) error {
	step, ok := e.(*jsl.Step)
	if !ok || step.Partition == nil || step.Partition.Plan == nil {
		return nil
	}
	plan := step.Partition.Plan
	partitions, err := strconv.Atoi(plan.Partitions)
	if err != nil {
		return nil
	}
	threads, err := strconv.Atoi(plan.EffectiveThreads())
	if err != nil {
		return nil
	}
	if threads > partitions {
		return InvalidValueError{
			Job:      jobId,
			Element:  elementName(e),
			Field:    "threads",
			Values:   []string{plan.Threads},
			Expected: "at most " + plan.Partitions + " (partitions)",
		}
	}
	return nil
}
