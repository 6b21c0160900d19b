// Copyright 2020, Square, Inc.

package jsl

// RefArtifact references a batch artifact (batchlet, reader, writer, listener,
// mapper...) by name. The name is resolved to an implementation by the
// artifact registry at execution time. An inline Script may be used instead
// of a ref, but not with one.
type RefArtifact struct {
	Ref        string
	Properties *Properties
	Script     *Script
}

func (a *RefArtifact) Clone() *RefArtifact {
	if a == nil {
		return nil
	}
	return &RefArtifact{
		Ref:        a.Ref,
		Properties: a.Properties.Clone(),
		Script:     a.Script.Clone(),
	}
}

// Script is an inline or external (Src) script implementing an artifact.
type Script struct {
	Type    string // e.g. "javascript", "groovy"
	Src     string
	Content string
}

func (s *Script) Clone() *Script {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Listeners is an ordered list of listener artifacts. Merge (default true)
// controls whether a parent's listeners are inherited.
type Listeners struct {
	Merge     *bool
	Listeners []*RefArtifact
}

func (l *Listeners) ShouldMerge() bool {
	return l.Merge == nil || *l.Merge
}

// Get returns the first listener with the given ref. Script listeners have no
// ref and are never found.
func (l *Listeners) Get(ref string) (*RefArtifact, bool) {
	if l == nil || ref == "" {
		return nil, false
	}
	for _, a := range l.Listeners {
		if a.Ref == ref {
			return a, true
		}
	}
	return nil, false
}

func (l *Listeners) Clone() *Listeners {
	if l == nil {
		return nil
	}
	c := &Listeners{Merge: cloneBool(l.Merge)}
	if l.Listeners != nil {
		c.Listeners = make([]*RefArtifact, len(l.Listeners))
		for i, a := range l.Listeners {
			c.Listeners[i] = a.Clone()
		}
	}
	return c
}
