// Copyright 2020, Square, Inc.

package inherit

import (
	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

// Merge rules, child is the inheriting element:
//   - scalar attributes are inherited only if the child left them unset
//   - properties and listeners follow the child container's merge flag
//   - artifacts are replaced wholesale; the child's wins if it has one
//   - anything copied from the parent is a deep copy

func (p *pass) mergeJob(parentDoc *document, child, parent *jsl.Job) error {
	if child.Restartable == "" {
		child.Restartable = parent.Restartable
	}
	child.Properties = mergeProperties(child.Properties, parent.Properties)
	child.Listeners = mergeListeners(child.Listeners, parent.Listeners)
	if len(child.Elements) == 0 && len(parent.Elements) > 0 {
		if err := p.resolveNested(parentDoc, parent.Elements); err != nil {
			return err
		}
		child.Elements = jsl.CloneElements(parent.Elements)
	}
	return nil
}

func mergeStep(child, parent *jsl.Step) error {
	transitions := inheritTransitions(child.Next, child.TransitionElements, parent.TransitionElements)
	if child.Next == "" {
		child.Next = parent.Next
	}
	child.TransitionElements = transitions
	if child.StartLimit == "" {
		child.StartLimit = parent.StartLimit
	}
	if child.AllowStartIfComplete == "" {
		child.AllowStartIfComplete = parent.AllowStartIfComplete
	}
	child.Properties = mergeProperties(child.Properties, parent.Properties)
	child.Listeners = mergeListeners(child.Listeners, parent.Listeners)

	switch {
	case child.Chunk != nil && child.Batchlet != nil:
		return errors.NewStructuralError("step "+child.Id, "step has both chunk and batchlet")
	case child.Chunk != nil:
		if parent.Chunk != nil {
			mergeChunk(child.Chunk, parent.Chunk)
		}
	case child.Batchlet != nil:
		// A different artifact; nothing to reconcile.
	default:
		child.Chunk = parent.Chunk.Clone()
		child.Batchlet = parent.Batchlet.Clone()
	}

	if child.Partition == nil {
		child.Partition = parent.Partition.Clone()
	}
	return nil
}

func (p *pass) mergeFlow(parentDoc *document, child, parent *jsl.Flow) error {
	transitions := inheritTransitions(child.Next, child.TransitionElements, parent.TransitionElements)
	if child.Next == "" {
		child.Next = parent.Next
	}
	child.TransitionElements = transitions

	if err := p.resolveNested(parentDoc, parent.Elements); err != nil {
		return err
	}
	child.Elements = jsl.CloneElements(parent.Elements)
	if child.Elements == nil {
		child.Elements = []jsl.JobElement{}
	}
	return nil
}

// inheritTransitions returns the child's transitions, or a copy of the
// parent's if the child declares neither transitions nor a next attribute.
func inheritTransitions(childNext string, child, parent []*jsl.Transition) []*jsl.Transition {
	if len(child) > 0 || childNext != "" {
		return child
	}
	return jsl.CloneTransitions(parent)
}

func mergeChunk(child, parent *jsl.Chunk) {
	if child.CheckpointPolicy == "" {
		child.CheckpointPolicy = parent.CheckpointPolicy
	}
	if child.ItemCount == "" {
		child.ItemCount = parent.ItemCount
	}
	if child.TimeLimit == "" {
		child.TimeLimit = parent.TimeLimit
	}
	if child.SkipLimit == "" {
		child.SkipLimit = parent.SkipLimit
	}
	if child.RetryLimit == "" {
		child.RetryLimit = parent.RetryLimit
	}

	child.Reader = mergeArtifact(child.Reader, parent.Reader)
	child.Processor = mergeArtifact(child.Processor, parent.Processor)
	child.Writer = mergeArtifact(child.Writer, parent.Writer)
	child.CheckpointAlgorithm = mergeArtifact(child.CheckpointAlgorithm, parent.CheckpointAlgorithm)

	child.SkippableExceptionClasses = mergeFilter(child.SkippableExceptionClasses, parent.SkippableExceptionClasses)
	child.RetryableExceptionClasses = mergeFilter(child.RetryableExceptionClasses, parent.RetryableExceptionClasses)
	child.NoRollbackExceptionClasses = mergeFilter(child.NoRollbackExceptionClasses, parent.NoRollbackExceptionClasses)
}

func mergeArtifact(child, parent *jsl.RefArtifact) *jsl.RefArtifact {
	if child != nil {
		return child
	}
	return parent.Clone()
}

func mergeProperties(child, parent *jsl.Properties) *jsl.Properties {
	if parent == nil {
		return child
	}
	if child == nil {
		return parent.Clone()
	}
	if !child.ShouldMerge() {
		return child
	}
	for _, e := range parent.Entries {
		if _, ok := child.Get(e.Name); !ok {
			child.Entries = append(child.Entries, e)
		}
	}
	return child
}

func mergeListeners(child, parent *jsl.Listeners) *jsl.Listeners {
	if parent == nil {
		return child
	}
	if child == nil {
		return parent.Clone()
	}
	if !child.ShouldMerge() {
		return child
	}
	// Refs identify listeners; script listeners are always distinct
	for _, l := range parent.Listeners {
		if _, ok := child.Get(l.Ref); !ok {
			child.Listeners = append(child.Listeners, l.Clone())
		}
	}
	return child
}

func mergeFilter(child, parent *jsl.ExceptionClassFilter) *jsl.ExceptionClassFilter {
	if parent == nil {
		return child
	}
	if child == nil {
		return parent.Clone()
	}
	if !child.ShouldMerge() {
		return child
	}
	child.Include = appendMissing(child.Include, parent.Include)
	child.Exclude = appendMissing(child.Exclude, parent.Exclude)
	return child
}

func appendMissing(to, from []string) []string {
	for _, s := range from {
		found := false
		for _, t := range to {
			if s == t {
				found = true
				break
			}
		}
		if !found {
			to = append(to, s)
		}
	}
	return to
}
