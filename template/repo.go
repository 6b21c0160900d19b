// Copyright 2020, Square, Inc.

// Package template caches resolved job definitions and makes execution
// snapshots of them.
//
// A job document goes through two phases. Once per document: load, resolve
// inheritance, check, publish as a Template. Once per execution (and once
// per partition of a partitioned step): clone the Template and resolve its
// property expressions into a Snapshot. A published Template is never
// modified, so any number of executions can snapshot it concurrently.
package template

import (
	"fmt"
	"sort"

	"github.com/orcaman/concurrent-map"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/square/jsl/check"
	"github.com/square/jsl/inherit"
	"github.com/square/jsl/jsl"
	"github.com/square/jsl/loader"
)

// Config configures a Repo.
type Config struct {
	// Loader loads job documents by name. Required.
	Loader loader.Loader

	// Checker checks every job before it's published. Jobs with errors are
	// not published. Optional.
	Checker *check.Checker

	// SystemProperties looks up systemProperties expressions in snapshots.
	// Defaults to os.LookupEnv.
	SystemProperties func(name string) (string, bool)

	// Logger for warnings. Defaults to the standard logger.
	Logger *log.Entry
}

// Repo is a concurrency-safe cache of Templates keyed by document name.
type Repo struct {
	cfg       Config
	templates cmap.ConcurrentMap // name => *Template
	group     singleflight.Group
}

func NewRepo(cfg Config) *Repo {
	if cfg.Logger == nil {
		cfg.Logger = log.NewEntry(log.StandardLogger())
	}
	return &Repo{
		cfg:       cfg,
		templates: cmap.New(),
	}
}

// Get returns the Template of a job document, building it on first use.
// Concurrent first uses of the same name build it once.
func (r *Repo) Get(name string) (*Template, error) {
	if v, ok := r.templates.Get(name); ok {
		return v.(*Template), nil
	}
	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		if v, ok := r.templates.Get(name); ok {
			return v, nil
		}
		job, err := r.cfg.Loader.Load(name)
		if err != nil {
			return nil, err
		}
		t, err := r.build(name, job)
		if err != nil {
			return nil, err
		}
		r.templates.Set(name, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Template), nil
}

// Put builds a Template from a job made in code, e.g. with the builder
// package, and publishes it under name, replacing any Template of that name.
// job is not modified. Its parents, if any, are loaded with the Loader.
func (r *Repo) Put(name string, job *jsl.Job) (*Template, error) {
	t, err := r.build(name, job.Clone())
	if err != nil {
		return nil, err
	}
	r.templates.Set(name, t)
	return t, nil
}

// Remove drops a Template. The next Get of name builds it again. If the
// Loader caches documents, its copy is forgotten too, so the document is
// read again.
func (r *Repo) Remove(name string) {
	r.templates.Remove(name)
	if f, ok := r.cfg.Loader.(forgetter); ok {
		f.Forget(name)
	}
}

// forgetter is implemented by loaders that cache documents, like
// loader.FSLoader.
type forgetter interface {
	Forget(name string)
}

// Names returns the names of all published Templates, sorted.
func (r *Repo) Names() []string {
	names := r.templates.Keys()
	sort.Strings(names)
	return names
}

// build resolves inheritance in job, which the caller owns, and checks it.
func (r *Repo) build(name string, job *jsl.Job) (*Template, error) {
	if err := inherit.Resolve(job, r.cfg.Loader); err != nil {
		return nil, err
	}

	t := &Template{
		Name:     name,
		job:      job,
		sysProps: r.cfg.SystemProperties,
		logger:   r.cfg.Logger,
	}

	if r.cfg.Checker != nil {
		results := r.cfg.Checker.RunChecks(job)
		if result, ok := results.Get(job.Id); ok {
			for _, w := range result.Warnings {
				r.cfg.Logger.WithField("job", job.Id).Warn(w)
			}
			t.Warnings = result.Warnings
			if len(result.Errors) > 0 {
				return nil, CheckError{Name: name, Errors: result.Errors}
			}
		}
	}

	r.cfg.Logger.WithFields(log.Fields{"document": name, "job": job.Id}).Debug("published template")
	return t, nil
}

// CheckError is returned when a job fails error checks.
type CheckError struct {
	Name   string
	Errors []error
}

func (e CheckError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("job document %s failed check: %s", e.Name, e.Errors[0])
	}
	return fmt.Sprintf("job document %s failed %d checks, first: %s", e.Name, len(e.Errors), e.Errors[0])
}
