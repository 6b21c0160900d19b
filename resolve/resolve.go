// Copyright 2020, Square, Inc.

// Package resolve replaces property expressions throughout a job with their
// values. It mutates the job it is given, so callers resolve a clone of a
// template, never the template itself.
package resolve

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/square/jsl/expr"
	"github.com/square/jsl/jsl"
)

// Resolver holds the scopes that don't come from the job itself. A Resolver
// is not modified by resolving, so one can be used concurrently on different
// jobs.
type Resolver struct {
	// JobParameters are the caller-supplied parameters of one execution.
	JobParameters map[string]string

	// SystemProperties looks up systemProperties. Defaults to os.LookupEnv.
	SystemProperties func(name string) (string, bool)

	// PartitionPlan is the plan properties of the partition being resolved.
	PartitionPlan *jsl.Properties

	// ResolvePartitionPlan enables partitionPlan expressions. When false they
	// are left as is, to be resolved per partition later.
	ResolvePartitionPlan bool

	// Logger receives unresolved-expression warnings. Defaults to the
	// standard logger.
	Logger *log.Entry
}

// ResolveJob resolves every expression in job, in document order: job
// attributes, job properties and listeners, then each element depth-first.
func (r *Resolver) ResolveJob(job *jsl.Job) error {
	p := r.newPass(job)
	return p.job(job)
}

// ResolveStep resolves every expression in step, a step of job, with the
// job's properties in scope. It's used to resolve a step per partition after
// the rest of job was resolved.
func (r *Resolver) ResolveStep(job *jsl.Job, step *jsl.Step) error {
	p := r.newPass(job)
	p.push(job.Properties)
	return p.step(step)
}

func (r *Resolver) newPass(job *jsl.Job) *pass {
	logger := r.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	sysProps := r.SystemProperties
	if sysProps == nil {
		sysProps = os.LookupEnv
	}
	p := &pass{
		r:        r,
		sysProps: sysProps,
		logger:   logger.WithField("job", job.Id),
	}
	p.eval = &expr.Evaluator{
		Lookup: p.lookup,
		Skip:   p.skip,
		Logger: p.logger,
	}
	return p
}

// pass is one resolution of one job.
type pass struct {
	r        *Resolver
	sysProps func(string) (string, bool)
	logger   *log.Entry
	eval     *expr.Evaluator

	// jobProperties scopes, innermost last
	stack []*jsl.Properties
}

func (p *pass) push(props *jsl.Properties) {
	p.stack = append(p.stack, props)
}

func (p *pass) pop() {
	p.stack = p.stack[:len(p.stack)-1]
}

func (p *pass) lookup(category, name string) (string, bool) {
	switch category {
	case expr.JobParameters:
		v, ok := p.r.JobParameters[name]
		return v, ok
	case expr.JobProperties:
		for i := len(p.stack) - 1; i >= 0; i-- {
			if v, ok := p.stack[i].Get(name); ok {
				return v, true
			}
		}
	case expr.SystemProperties:
		return p.sysProps(name)
	case expr.PartitionPlan:
		return p.r.PartitionPlan.Get(name)
	}
	return "", false
}

func (p *pass) skip(category string) bool {
	return category == expr.PartitionPlan && !p.r.ResolvePartitionPlan
}

// str resolves *s in place.
func (p *pass) str(s *string) error {
	v, err := p.eval.Evaluate(*s)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (p *pass) strs(ss ...*string) error {
	for _, s := range ss {
		if err := p.str(s); err != nil {
			return err
		}
	}
	return nil
}

// properties resolves property values in order, so an entry sees the
// resolved values of the entries before it.
func (p *pass) properties(props *jsl.Properties) error {
	if props == nil {
		return nil
	}
	for i := range props.Entries {
		if err := p.str(&props.Entries[i].Value); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------

func (p *pass) job(job *jsl.Job) error {
	if err := p.str(&job.Restartable); err != nil {
		return err
	}
	p.push(job.Properties)
	defer p.pop()
	if err := p.properties(job.Properties); err != nil {
		return err
	}
	if err := p.listeners(job.Listeners); err != nil {
		return err
	}
	return p.elements(job.Elements)
}

func (p *pass) elements(elements []jsl.JobElement) error {
	for _, e := range elements {
		var err error
		switch v := e.(type) {
		case *jsl.Step:
			err = p.step(v)
		case *jsl.Flow:
			err = p.flow(v)
		case *jsl.Split:
			err = p.split(v)
		case *jsl.Decision:
			err = p.decision(v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) step(s *jsl.Step) error {
	saved := p.eval.Logger
	p.eval.Logger = p.logger.WithField("step", s.Id)
	defer func() { p.eval.Logger = saved }()

	p.push(s.Properties)
	err := p.stepFields(s)
	p.pop()
	if err != nil {
		return err
	}
	return p.transitions(s.TransitionElements)
}

func (p *pass) stepFields(s *jsl.Step) error {
	if err := p.properties(s.Properties); err != nil {
		return err
	}
	if err := p.strs(&s.Next, &s.StartLimit, &s.AllowStartIfComplete); err != nil {
		return err
	}
	if err := p.listeners(s.Listeners); err != nil {
		return err
	}
	if err := p.artifact(s.Batchlet); err != nil {
		return err
	}
	if c := s.Chunk; c != nil {
		if err := p.strs(&c.CheckpointPolicy, &c.ItemCount, &c.TimeLimit, &c.SkipLimit, &c.RetryLimit); err != nil {
			return err
		}
		for _, a := range []*jsl.RefArtifact{c.Reader, c.Processor, c.Writer, c.CheckpointAlgorithm} {
			if err := p.artifact(a); err != nil {
				return err
			}
		}
		for _, f := range []*jsl.ExceptionClassFilter{c.SkippableExceptionClasses, c.RetryableExceptionClasses, c.NoRollbackExceptionClasses} {
			if err := p.filter(f); err != nil {
				return err
			}
		}
	}
	if part := s.Partition; part != nil {
		for _, a := range []*jsl.RefArtifact{part.Mapper, part.Collector, part.Analyzer, part.Reducer} {
			if err := p.artifact(a); err != nil {
				return err
			}
		}
		if plan := part.Plan; plan != nil {
			if err := p.strs(&plan.Partitions, &plan.Threads); err != nil {
				return err
			}
			for _, props := range plan.Properties {
				if err := p.properties(props); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *pass) flow(f *jsl.Flow) error {
	if err := p.str(&f.Next); err != nil {
		return err
	}
	if err := p.elements(f.Elements); err != nil {
		return err
	}
	return p.transitions(f.TransitionElements)
}

func (p *pass) split(s *jsl.Split) error {
	if err := p.str(&s.Next); err != nil {
		return err
	}
	for _, f := range s.Flows {
		if err := p.flow(f); err != nil {
			return err
		}
	}
	return p.transitions(s.TransitionElements)
}

// Decision properties are passed to the decider; they are not a scope.
func (p *pass) decision(d *jsl.Decision) error {
	if err := p.str(&d.Ref); err != nil {
		return err
	}
	if err := p.properties(d.Properties); err != nil {
		return err
	}
	return p.transitions(d.TransitionElements)
}

func (p *pass) transitions(transitions []*jsl.Transition) error {
	for _, t := range transitions {
		if err := p.strs(&t.On, &t.To, &t.ExitStatus, &t.Restart); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) listeners(l *jsl.Listeners) error {
	if l == nil {
		return nil
	}
	for _, a := range l.Listeners {
		if err := p.artifact(a); err != nil {
			return err
		}
	}
	return nil
}

// artifact resolves the ref and properties of an artifact. Script content is
// left as is.
func (p *pass) artifact(a *jsl.RefArtifact) error {
	if a == nil {
		return nil
	}
	if err := p.str(&a.Ref); err != nil {
		return err
	}
	if err := p.properties(a.Properties); err != nil {
		return err
	}
	if a.Script != nil {
		return p.strs(&a.Script.Type, &a.Script.Src)
	}
	return nil
}

func (p *pass) filter(f *jsl.ExceptionClassFilter) error {
	if f == nil {
		return nil
	}
	for i := range f.Include {
		if err := p.str(&f.Include[i]); err != nil {
			return err
		}
	}
	for i := range f.Exclude {
		if err := p.str(&f.Exclude[i]); err != nil {
			return err
		}
	}
	return nil
}
