// Copyright 2020, Square, Inc.

package jsl

// ExceptionClassFilter selects error types by fully-qualified type name for
// skip, retry and no-rollback handling. A type matches if its nearest
// ancestor (or itself) listed in Include is closer than its nearest ancestor
// listed in Exclude.
type ExceptionClassFilter struct {
	Merge   *bool
	Include []string
	Exclude []string
}

func (f *ExceptionClassFilter) ShouldMerge() bool {
	return f.Merge == nil || *f.Merge
}

// Matches reports whether the filter selects a type. lineage is the type
// name followed by its ancestors, nearest first, e.g. ["FileNotFound",
// "IOError", "Error"].
func (f *ExceptionClassFilter) Matches(lineage []string) bool {
	if f == nil || len(f.Include) == 0 {
		return false
	}
	inc := distance(lineage, f.Include)
	if inc < 0 {
		return false
	}
	exc := distance(lineage, f.Exclude)
	return exc < 0 || inc < exc
}

// A TypeHierarchy reports the direct supertype of a type name. ok is false at
// the root of the hierarchy.
type TypeHierarchy interface {
	Supertype(name string) (super string, ok bool)
}

// MatchesType is Matches with the lineage of name taken from h.
func (f *ExceptionClassFilter) MatchesType(name string, h TypeHierarchy) bool {
	return f.Matches(Lineage(name, h))
}

// Lineage returns name and its supertypes, nearest first. It stops if the
// hierarchy loops.
func Lineage(name string, h TypeHierarchy) []string {
	lineage := []string{name}
	seen := map[string]bool{name: true}
	for {
		super, ok := h.Supertype(name)
		if !ok || seen[super] {
			return lineage
		}
		lineage = append(lineage, super)
		seen[super] = true
		name = super
	}
}

func distance(lineage []string, names []string) int {
	for i, t := range lineage {
		for _, n := range names {
			if n == t {
				return i
			}
		}
	}
	return -1
}

func (f *ExceptionClassFilter) Clone() *ExceptionClassFilter {
	if f == nil {
		return nil
	}
	return &ExceptionClassFilter{
		Merge:   cloneBool(f.Merge),
		Include: cloneStrings(f.Include),
		Exclude: cloneStrings(f.Exclude),
	}
}

// TypeMap is a TypeHierarchy backed by a map of type name to supertype name.
type TypeMap map[string]string

func (m TypeMap) Supertype(name string) (string, bool) {
	s, ok := m[name]
	return s, ok
}
