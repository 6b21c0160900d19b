// Copyright 2020, Square, Inc.

package builder

import (
	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

// StepBuilder builds a *jsl.Step. Setting any chunk attribute or artifact
// makes it a chunk step.
type StepBuilder struct {
	step  *jsl.Step
	where string
	err   error
}

func NewStep(id string) *StepBuilder {
	b := &StepBuilder{
		step:  &jsl.Step{Id: id},
		where: "step " + id,
	}
	if id == "" {
		b.err = errors.NewStructuralError("step", "missing required attribute id")
	}
	return b
}

func (b *StepBuilder) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *StepBuilder) ref(ref string, kv []string) *jsl.RefArtifact {
	a, err := artifact(b.where, ref, kv)
	b.setErr(err)
	return a
}

func (b *StepBuilder) chunk() *jsl.Chunk {
	if b.step.Chunk == nil {
		b.step.Chunk = &jsl.Chunk{}
	}
	return b.step.Chunk
}

func (b *StepBuilder) partition() *jsl.Partition {
	if b.step.Partition == nil {
		b.step.Partition = &jsl.Partition{}
	}
	return b.step.Partition
}

func (b *StepBuilder) plan() *jsl.PartitionPlan {
	p := b.partition()
	if p.Plan == nil {
		p.Plan = &jsl.PartitionPlan{}
	}
	return p.Plan
}

// Batchlet makes the step a batchlet step. kv are the batchlet's properties
// as name-value pairs.
func (b *StepBuilder) Batchlet(ref string, kv ...string) *StepBuilder {
	b.step.Batchlet = b.ref(ref, kv)
	return b
}

func (b *StepBuilder) Reader(ref string, kv ...string) *StepBuilder {
	b.chunk().Reader = b.ref(ref, kv)
	return b
}

func (b *StepBuilder) Processor(ref string, kv ...string) *StepBuilder {
	b.chunk().Processor = b.ref(ref, kv)
	return b
}

func (b *StepBuilder) Writer(ref string, kv ...string) *StepBuilder {
	b.chunk().Writer = b.ref(ref, kv)
	return b
}

func (b *StepBuilder) CheckpointAlgorithm(ref string, kv ...string) *StepBuilder {
	b.chunk().CheckpointAlgorithm = b.ref(ref, kv)
	return b
}

func (b *StepBuilder) CheckpointPolicy(policy string) *StepBuilder {
	b.chunk().CheckpointPolicy = policy
	return b
}

func (b *StepBuilder) ItemCount(n string) *StepBuilder {
	b.chunk().ItemCount = n
	return b
}

func (b *StepBuilder) TimeLimit(n string) *StepBuilder {
	b.chunk().TimeLimit = n
	return b
}

func (b *StepBuilder) SkipLimit(n string) *StepBuilder {
	b.chunk().SkipLimit = n
	return b
}

func (b *StepBuilder) RetryLimit(n string) *StepBuilder {
	b.chunk().RetryLimit = n
	return b
}

func filter(f *jsl.ExceptionClassFilter) *jsl.ExceptionClassFilter {
	if f == nil {
		f = &jsl.ExceptionClassFilter{Include: []string{}, Exclude: []string{}}
	}
	return f
}

// SkippableException includes one exception class in the skippable filter.
func (b *StepBuilder) SkippableException(class string) *StepBuilder {
	return b.SkippableExceptions([]string{class}, nil)
}

// SkippableExceptions adds included and excluded exception classes to the
// skippable filter.
func (b *StepBuilder) SkippableExceptions(include, exclude []string) *StepBuilder {
	c := b.chunk()
	c.SkippableExceptionClasses = filter(c.SkippableExceptionClasses)
	c.SkippableExceptionClasses.Include = append(c.SkippableExceptionClasses.Include, include...)
	c.SkippableExceptionClasses.Exclude = append(c.SkippableExceptionClasses.Exclude, exclude...)
	return b
}

func (b *StepBuilder) RetryableException(class string) *StepBuilder {
	return b.RetryableExceptions([]string{class}, nil)
}

func (b *StepBuilder) RetryableExceptions(include, exclude []string) *StepBuilder {
	c := b.chunk()
	c.RetryableExceptionClasses = filter(c.RetryableExceptionClasses)
	c.RetryableExceptionClasses.Include = append(c.RetryableExceptionClasses.Include, include...)
	c.RetryableExceptionClasses.Exclude = append(c.RetryableExceptionClasses.Exclude, exclude...)
	return b
}

func (b *StepBuilder) NoRollbackException(class string) *StepBuilder {
	return b.NoRollbackExceptions([]string{class}, nil)
}

func (b *StepBuilder) NoRollbackExceptions(include, exclude []string) *StepBuilder {
	c := b.chunk()
	c.NoRollbackExceptionClasses = filter(c.NoRollbackExceptionClasses)
	c.NoRollbackExceptionClasses.Include = append(c.NoRollbackExceptionClasses.Include, include...)
	c.NoRollbackExceptionClasses.Exclude = append(c.NoRollbackExceptionClasses.Exclude, exclude...)
	return b
}

// PartitionMapper partitions the step with a mapper artifact. A step has a
// mapper or a plan, not both.
func (b *StepBuilder) PartitionMapper(ref string, kv ...string) *StepBuilder {
	b.partition().Mapper = b.ref(ref, kv)
	return b
}

// PartitionPlan partitions the step with a static plan. threads may be
// empty, meaning one thread per partition.
func (b *StepBuilder) PartitionPlan(partitions, threads string) *StepBuilder {
	p := b.plan()
	p.Partitions = partitions
	p.Threads = threads
	return b
}

// PartitionProperties adds the plan properties of one partition, by index.
func (b *StepBuilder) PartitionProperties(index string, kv ...string) *StepBuilder {
	p := b.plan()
	props := jsl.NewProperties(kv...)
	props.Partition = index
	p.Properties = append(p.Properties, props)
	return b
}

func (b *StepBuilder) PartitionCollector(ref string, kv ...string) *StepBuilder {
	b.partition().Collector = b.ref(ref, kv)
	return b
}

func (b *StepBuilder) PartitionAnalyzer(ref string, kv ...string) *StepBuilder {
	b.partition().Analyzer = b.ref(ref, kv)
	return b
}

func (b *StepBuilder) PartitionReducer(ref string, kv ...string) *StepBuilder {
	b.partition().Reducer = b.ref(ref, kv)
	return b
}

func (b *StepBuilder) StartLimit(n string) *StepBuilder {
	b.step.StartLimit = n
	return b
}

func (b *StepBuilder) AllowStartIfComplete(allow string) *StepBuilder {
	b.step.AllowStartIfComplete = allow
	return b
}

func (b *StepBuilder) Property(name, value string) *StepBuilder {
	b.step.Properties = setProperty(b.step.Properties, name, value)
	return b
}

func (b *StepBuilder) Listener(ref string, kv ...string) *StepBuilder {
	b.step.Listeners = addListener(b.step.Listeners, b.ref(ref, kv))
	return b
}

func (b *StepBuilder) Next(id string) *StepBuilder {
	b.step.Next = id
	return b
}

func (b *StepBuilder) NextOn(on, to string) *StepBuilder {
	return b.addTransition(jsl.TransitionNext, on, to, "", "")
}

func (b *StepBuilder) EndOn(on, exitStatus string) *StepBuilder {
	return b.addTransition(jsl.TransitionEnd, on, "", exitStatus, "")
}

func (b *StepBuilder) FailOn(on, exitStatus string) *StepBuilder {
	return b.addTransition(jsl.TransitionFail, on, "", exitStatus, "")
}

// StopOn adds a stop transition. restart is the id to restart at, if any.
func (b *StepBuilder) StopOn(on, exitStatus, restart string) *StepBuilder {
	return b.addTransition(jsl.TransitionStop, on, "", exitStatus, restart)
}

func (b *StepBuilder) addTransition(t jsl.TransitionType, on, to, exitStatus, restart string) *StepBuilder {
	tr, err := transition(b.where, t, on, to, exitStatus, restart)
	b.setErr(err)
	b.step.TransitionElements = append(b.step.TransitionElements, tr)
	return b
}

// Build returns the step, or the first error recorded while building it.
// Every call returns a new copy.
func (b *StepBuilder) Build() (*jsl.Step, error) {
	if b.err != nil {
		return nil, b.err
	}
	s := b.step
	if s.Chunk != nil && s.Batchlet != nil {
		return nil, errors.NewStructuralError(b.where, "step has both chunk and batchlet")
	}
	if err := checkNext(b.where, s.Next, s.TransitionElements); err != nil {
		return nil, err
	}
	if p := s.Partition; p != nil && p.Mapper != nil && p.Plan != nil {
		return nil, errors.NewStructuralError(b.where, "partition has both mapper and plan")
	}
	return s.Clone(), nil
}
