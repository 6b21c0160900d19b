// Copyright 2020, Square, Inc.

// Package builder builds job definitions in code, as an alternative to
// parsing a job document:
//
//   job, err := builder.NewJob("job1").
//       Property("inputDir", "/data/in").
//       Step(builder.NewStep("step1").
//           Batchlet("prepare").
//           Next("step2")).
//       Step(builder.NewStep("step2").
//           Reader("csvReader").
//           Writer("dbWriter").
//           ItemCount("100")).
//       Build()
//
// Builders record the first error and return it from Build. Built elements
// never have a parent; a built job is ready for the property resolver (or
// the template repo, via loader.Map).
package builder

import (
	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

// JobBuilder builds a *jsl.Job.
type JobBuilder struct {
	job *jsl.Job
	err error
}

func NewJob(id string) *JobBuilder {
	b := &JobBuilder{
		job: &jsl.Job{
			Id:       id,
			Elements: []jsl.JobElement{},
		},
	}
	if id == "" {
		b.err = errors.NewStructuralError("job", "missing required attribute id")
	}
	return b
}

func (b *JobBuilder) Restartable(restartable string) *JobBuilder {
	b.job.Restartable = restartable
	return b
}

// Property sets a job property. Setting a name again replaces its value.
func (b *JobBuilder) Property(name, value string) *JobBuilder {
	b.job.Properties = setProperty(b.job.Properties, name, value)
	return b
}

// Properties sets job properties from name-value pairs.
func (b *JobBuilder) Properties(kv ...string) *JobBuilder {
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		b.Property(kv[i], v)
	}
	return b
}

// Listener adds a job listener. kv are the listener's properties as
// name-value pairs.
func (b *JobBuilder) Listener(ref string, kv ...string) *JobBuilder {
	a, err := artifact("job "+b.job.Id, ref, kv)
	b.setErr(err)
	b.job.Listeners = addListener(b.job.Listeners, a)
	return b
}

// ListenerMerge sets the merge flag of the job's listeners.
func (b *JobBuilder) ListenerMerge(merge bool) *JobBuilder {
	if b.job.Listeners == nil {
		b.job.Listeners = &jsl.Listeners{Listeners: []*jsl.RefArtifact{}}
	}
	b.job.Listeners.Merge = jsl.Bool(merge)
	return b
}

func (b *JobBuilder) Step(s *StepBuilder) *JobBuilder {
	step, err := s.Build()
	b.add(step, err)
	return b
}

func (b *JobBuilder) Flow(f *FlowBuilder) *JobBuilder {
	flow, err := f.Build()
	b.add(flow, err)
	return b
}

func (b *JobBuilder) Split(s *SplitBuilder) *JobBuilder {
	split, err := s.Build()
	b.add(split, err)
	return b
}

func (b *JobBuilder) Decision(d *DecisionBuilder) *JobBuilder {
	decision, err := d.Build()
	b.add(decision, err)
	return b
}

func (b *JobBuilder) add(e jsl.JobElement, err error) {
	if err != nil {
		b.setErr(err)
		return
	}
	b.job.Elements = append(b.job.Elements, e)
}

func (b *JobBuilder) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// Build returns the job, or the first error recorded while building it. Ids
// must be unique in the whole job. Every call returns a new copy.
func (b *JobBuilder) Build() (*jsl.Job, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := jsl.CheckUniqueIds(b.job); err != nil {
		return nil, err
	}
	return b.job.Clone(), nil
}

// --------------------------------------------------------------------------

func setProperty(props *jsl.Properties, name, value string) *jsl.Properties {
	if props == nil {
		props = jsl.NewProperties()
	}
	props.Set(name, value)
	return props
}

func artifact(where, ref string, kv []string) (*jsl.RefArtifact, error) {
	a := &jsl.RefArtifact{Ref: ref}
	if len(kv) > 0 {
		a.Properties = jsl.NewProperties(kv...)
	}
	if ref == "" {
		return a, errors.NewStructuralError(where, "artifact missing required attribute ref")
	}
	return a, nil
}

func addListener(l *jsl.Listeners, a *jsl.RefArtifact) *jsl.Listeners {
	if l == nil {
		l = &jsl.Listeners{Listeners: []*jsl.RefArtifact{}}
	}
	l.Listeners = append(l.Listeners, a)
	return l
}

func transition(where string, t jsl.TransitionType, on, to, exitStatus, restart string) (*jsl.Transition, error) {
	tr := &jsl.Transition{
		Type:       t,
		On:         on,
		To:         to,
		ExitStatus: exitStatus,
		Restart:    restart,
	}
	if on == "" {
		return tr, errors.NewStructuralError(where, "%s transition missing required attribute on", t)
	}
	if t == jsl.TransitionNext && to == "" {
		return tr, errors.NewStructuralError(where, "next transition on %q missing required attribute to", on)
	}
	return tr, nil
}

// checkNext rejects a next attribute combined with a next transition.
func checkNext(where, next string, transitions []*jsl.Transition) error {
	if next == "" {
		return nil
	}
	for _, t := range transitions {
		if t.Type == jsl.TransitionNext {
			return errors.NewStructuralError(where, "next attribute and next transition element are mutually exclusive")
		}
	}
	return nil
}
