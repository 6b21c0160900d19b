// Copyright 2020, Square, Inc.

package jsl

// Step is a single unit of work. Once resolved, a concrete (non-abstract) step
// has exactly one of Batchlet or Chunk. Both or neither is only legal while a
// step still has a parent to inherit from.
type Step struct {
	Inheritance

	Id                   string
	Next                 string
	StartLimit           string
	AllowStartIfComplete string
	Properties           *Properties
	Listeners            *Listeners
	Batchlet             *RefArtifact
	Chunk                *Chunk
	Partition            *Partition
	TransitionElements   []*Transition
}

func (s *Step) ElementId() string { return s.Id }
func (s *Step) Kind() Kind { return KindStep }
func (s *Step) Transitions() []*Transition { return s.TransitionElements }

func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	return &Step{
		Inheritance:          s.Inheritance,
		Id:                   s.Id,
		Next:                 s.Next,
		StartLimit:           s.StartLimit,
		AllowStartIfComplete: s.AllowStartIfComplete,
		Properties:           s.Properties.Clone(),
		Listeners:            s.Listeners.Clone(),
		Batchlet:             s.Batchlet.Clone(),
		Chunk:                s.Chunk.Clone(),
		Partition:            s.Partition.Clone(),
		TransitionElements:   CloneTransitions(s.TransitionElements),
	}
}

// Chunk configures read-process-write processing. Limits are strings because
// they may hold expressions until properties are resolved.
type Chunk struct {
	Reader              *RefArtifact
	Processor           *RefArtifact
	Writer              *RefArtifact
	CheckpointAlgorithm *RefArtifact

	CheckpointPolicy string // "item" or "custom"
	ItemCount        string
	TimeLimit        string
	SkipLimit        string
	RetryLimit       string

	SkippableExceptionClasses  *ExceptionClassFilter
	RetryableExceptionClasses  *ExceptionClassFilter
	NoRollbackExceptionClasses *ExceptionClassFilter
}

func (c *Chunk) Clone() *Chunk {
	if c == nil {
		return nil
	}
	return &Chunk{
		Reader:                     c.Reader.Clone(),
		Processor:                  c.Processor.Clone(),
		Writer:                     c.Writer.Clone(),
		CheckpointAlgorithm:        c.CheckpointAlgorithm.Clone(),
		CheckpointPolicy:           c.CheckpointPolicy,
		ItemCount:                  c.ItemCount,
		TimeLimit:                  c.TimeLimit,
		SkipLimit:                  c.SkipLimit,
		RetryLimit:                 c.RetryLimit,
		SkippableExceptionClasses:  c.SkippableExceptionClasses.Clone(),
		RetryableExceptionClasses:  c.RetryableExceptionClasses.Clone(),
		NoRollbackExceptionClasses: c.NoRollbackExceptionClasses.Clone(),
	}
}

// Partition runs a step as N independent copies. Either Mapper decides the
// partitions at runtime or Plan declares them statically.
type Partition struct {
	Mapper    *RefArtifact
	Collector *RefArtifact
	Analyzer  *RefArtifact
	Reducer   *RefArtifact
	Plan      *PartitionPlan
}

func (p *Partition) Clone() *Partition {
	if p == nil {
		return nil
	}
	return &Partition{
		Mapper:    p.Mapper.Clone(),
		Collector: p.Collector.Clone(),
		Analyzer:  p.Analyzer.Clone(),
		Reducer:   p.Reducer.Clone(),
		Plan:      p.Plan.Clone(),
	}
}

type PartitionPlan struct {
	Partitions string
	Threads    string        // defaults to Partitions
	Properties []*Properties // one per partition, tagged with Properties.Partition
}

// EffectiveThreads returns Threads, or Partitions if Threads is not set.
func (p *PartitionPlan) EffectiveThreads() string {
	if p.Threads == "" {
		return p.Partitions
	}
	return p.Threads
}

// PartitionProperties returns the properties tagged with the given partition
// index. A Properties container with no tag is not returned.
func (p *PartitionPlan) PartitionProperties(index string) *Properties {
	for _, props := range p.Properties {
		if props != nil && props.Partition == index {
			return props
		}
	}
	return nil
}

func (p *PartitionPlan) Clone() *PartitionPlan {
	if p == nil {
		return nil
	}
	c := &PartitionPlan{
		Partitions: p.Partitions,
		Threads:    p.Threads,
	}
	if p.Properties != nil {
		c.Properties = make([]*Properties, len(p.Properties))
		for i, props := range p.Properties {
			c.Properties[i] = props.Clone()
		}
	}
	return c
}
