// Copyright 2020, Square, Inc.

// Package loader finds and parses job documents by name. Inheritance
// resolution uses a Loader to fetch parents declared in other documents
// (jsl-name), and the template repo uses one to load the job being started.
package loader

import (
	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

// A Loader returns the parsed, unresolved root job of a named document.
// Implementations must be safe for concurrent use. The returned job belongs
// to the caller, which may modify it.
type Loader interface {
	Load(name string) (*jsl.Job, error)
}

// Map is a Loader over jobs already in memory, e.g. built with the builder
// package. Load returns a copy.
type Map map[string]*jsl.Job

func (m Map) Load(name string) (*jsl.Job, error) {
	job, ok := m[name]
	if !ok {
		return nil, errors.JobNotFound{Name: name}
	}
	return job.Clone(), nil
}

// PassCache wraps a Loader for one inheritance resolution pass. Each name is
// loaded at most once and every Load of it returns the same *jsl.Job, so
// parents resolved earlier in the pass are seen resolved when referenced
// again. It is not safe for concurrent use.
type PassCache struct {
	l    Loader
	jobs map[string]*jsl.Job
}

func NewPassCache(l Loader) *PassCache {
	return &PassCache{
		l:    l,
		jobs: map[string]*jsl.Job{},
	}
}

func (c *PassCache) Load(name string) (*jsl.Job, error) {
	if job, ok := c.jobs[name]; ok {
		return job, nil
	}
	job, err := c.l.Load(name)
	if err != nil {
		return nil, err
	}
	c.jobs[name] = job
	return job, nil
}

// Put adds a job to the cache, e.g. the job being resolved, so references
// back to its own document don't load a second copy.
func (c *PassCache) Put(name string, job *jsl.Job) {
	c.jobs[name] = job
}
