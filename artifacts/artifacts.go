// Copyright 2020, Square, Inc.

// Package artifacts maps batch artifact ref names, as used in job documents,
// to implementation type names. The execution runtime uses a Registry to
// instantiate the artifact behind a jsl.RefArtifact.
package artifacts

import (
	"sort"
	"strings"

	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

// BatchArtifacts maps ref name => implementation type name, as declared in a
// batch-artifacts document.
type BatchArtifacts map[string]string

// A Registry resolves artifact ref names to implementations.
type Registry interface {
	// Resolve returns the implementation type name for ref, or an
	// errors.ArtifactNotFound.
	Resolve(ref string) (string, error)
}

type registry struct {
	artifacts BatchArtifacts
}

// NewRegistry returns a Registry backed by the given artifacts. The map is
// copied.
func NewRegistry(artifacts BatchArtifacts) Registry {
	r := &registry{artifacts: BatchArtifacts{}}
	for ref, class := range artifacts {
		r.artifacts[ref] = class
	}
	return r
}

func (r *registry) Resolve(ref string) (string, error) {
	class, ok := r.artifacts[ref]
	if !ok {
		return "", errors.ArtifactNotFound{Ref: ref}
	}
	return class, nil
}

// Refs returns every artifact ref used in job, sorted and without
// duplicates. Script artifacts have no ref and are not listed.
func Refs(job *jsl.Job) []string {
	set := map[string]bool{}
	add := func(artifacts ...*jsl.RefArtifact) {
		for _, a := range artifacts {
			if a != nil && a.Ref != "" {
				set[a.Ref] = true
			}
		}
	}
	addListeners := func(l *jsl.Listeners) {
		if l != nil {
			add(l.Listeners...)
		}
	}

	addListeners(job.Listeners)
	jsl.Walk(job.Elements, func(e jsl.JobElement) bool {
		switch v := e.(type) {
		case *jsl.Step:
			addListeners(v.Listeners)
			add(v.Batchlet)
			if c := v.Chunk; c != nil {
				add(c.Reader, c.Processor, c.Writer, c.CheckpointAlgorithm)
			}
			if p := v.Partition; p != nil {
				add(p.Mapper, p.Collector, p.Analyzer, p.Reducer)
			}
		case *jsl.Decision:
			if v.Ref != "" {
				set[v.Ref] = true
			}
		}
		return true
	})

	refs := make([]string, 0, len(set))
	for ref := range set {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Missing returns the refs used in job that r cannot resolve. Refs that are
// still property expressions are not checked.
func Missing(r Registry, job *jsl.Job) []string {
	missing := []string{}
	for _, ref := range Refs(job) {
		if strings.Contains(ref, "#{") {
			continue
		}
		if _, err := r.Resolve(ref); err != nil {
			missing = append(missing, ref)
		}
	}
	return missing
}
