// Copyright 2020, Square, Inc.

// Package inherit resolves inheritance in a job definition: every job, step
// and flow that names a parent is merged with it, in place. Parents may be in
// the same document or, via jsl-name, in another document fetched with a
// loader.Loader. The result is a template: a job with no parents left.
package inherit

import (
	log "github.com/sirupsen/logrus"

	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
	"github.com/square/jsl/loader"
)

// SameDocument as a jsl-name means the parent is in the child's document.
const SameDocument = "*"

// Resolver resolves inheritance. It is safe for concurrent use; each call to
// Resolve is an independent pass with its own document cache.
type Resolver struct {
	l loader.Loader
}

func NewResolver(l loader.Loader) *Resolver {
	return &Resolver{l: l}
}

// Resolve resolves job with a new Resolver. See Resolver.Resolve.
func Resolve(job *jsl.Job, l loader.Loader) error {
	return NewResolver(l).Resolve(job)
}

// Resolve merges every inheriting element of job with its parent, in the
// order of job.InheritingElements, and clears their Parent and JslName. The
// first error aborts the pass; job is then partially merged and must be
// discarded.
func (r *Resolver) Resolve(job *jsl.Job) error {
	p := &pass{
		cache: loader.NewPassCache(r.l),
		docs:  map[*jsl.Job]*document{},
	}
	p.cache.Put(documentName(job), job)
	doc := p.document(job)

	for i, id := range job.InheritingElements {
		var e jsl.InheritableElement
		if i == 0 && id == job.Id && job.Parent != "" {
			e = job
		} else {
			found, ok := doc.index[id].(jsl.InheritableElement)
			if !ok {
				// Replaced by a flow merge; no longer part of the job.
				continue
			}
			e = found
		}
		if err := p.resolve(doc, e); err != nil {
			return err
		}
	}
	job.InheritingElements = nil
	return nil
}

func documentName(job *jsl.Job) string {
	if job.JobXmlName != "" {
		return job.JobXmlName
	}
	return job.Id
}

// document is a job document taking part in a pass, with its id index.
type document struct {
	job   *jsl.Job
	index map[string]jsl.JobElement
}

func (d *document) reindex() {
	d.index = jsl.IndexIds(d.job)
}

// pass is the state of one Resolve call.
type pass struct {
	cache *loader.PassCache
	docs  map[*jsl.Job]*document

	// Elements being resolved, outermost first, for cycle detection.
	chain    []*document
	chainEls []jsl.InheritableElement
}

func (p *pass) document(job *jsl.Job) *document {
	if d, ok := p.docs[job]; ok {
		return d
	}
	d := &document{job: job}
	d.reindex()
	p.docs[job] = d
	return d
}

func (p *pass) inChain(doc *document, e jsl.InheritableElement) bool {
	for i := range p.chain {
		if p.chain[i] == doc && p.chainEls[i] == e {
			return true
		}
	}
	return false
}

func (p *pass) chainIds(last string) []string {
	ids := make([]string, 0, len(p.chainEls)+1)
	for _, e := range p.chainEls {
		ids = append(ids, e.ElementId())
	}
	return append(ids, last)
}

// resolve merges e, which belongs to doc, with its parent, resolving the
// parent first if it has a parent of its own.
func (p *pass) resolve(doc *document, e jsl.InheritableElement) error {
	inh := e.Inherits()
	if inh.Resolved() {
		return nil
	}

	p.chain = append(p.chain, doc)
	p.chainEls = append(p.chainEls, e)
	defer func() {
		p.chain = p.chain[:len(p.chain)-1]
		p.chainEls = p.chainEls[:len(p.chainEls)-1]
	}()

	parentDoc, parent, err := p.findParent(doc, e)
	if err != nil {
		return err
	}
	if p.inChain(parentDoc, parent) {
		return errors.CyclicInheritanceError{Chain: p.chainIds(parent.ElementId())}
	}
	if !parent.Inherits().Resolved() {
		if err := p.resolve(parentDoc, parent); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"job":    doc.job.Id,
		"kind":   e.Kind().String(),
		"id":     e.ElementId(),
		"parent": parent.ElementId(),
	}).Debug("merging parent")

	switch child := e.(type) {
	case *jsl.Job:
		err = p.mergeJob(parentDoc, child, parent.(*jsl.Job))
	case *jsl.Step:
		err = mergeStep(child, parent.(*jsl.Step))
	case *jsl.Flow:
		err = p.mergeFlow(parentDoc, child, parent.(*jsl.Flow))
	}
	if err != nil {
		return err
	}

	inh.Parent = ""
	inh.JslName = ""
	if e.Kind() != jsl.KindStep {
		doc.reindex()
	}
	return nil
}

// findParent returns the parent of e and the document it is in.
func (p *pass) findParent(doc *document, e jsl.InheritableElement) (*document, jsl.InheritableElement, error) {
	inh := e.Inherits()
	where := e.Kind().String() + " " + e.ElementId()

	if job, ok := e.(*jsl.Job); ok {
		name := inh.JslName
		if name == "" || name == SameDocument {
			name = inh.Parent
		}
		parentJob, err := p.cache.Load(name)
		if err != nil {
			return nil, nil, err
		}
		if parentJob.Id != inh.Parent {
			return nil, nil, errors.NewStructuralError(where, "parent job %s not found in document %s (found job %s)", inh.Parent, name, parentJob.Id)
		}
		if parentJob == job {
			return nil, nil, errors.CyclicInheritanceError{Chain: p.chainIds(job.Id)}
		}
		return p.document(parentJob), parentJob, nil
	}

	var parentDoc *document
	var parent jsl.JobElement
	if inh.JslName == "" || inh.JslName == SameDocument || inh.JslName == doc.job.Id {
		parentDoc = doc
		parent = doc.index[inh.Parent]
	} else {
		parentJob, err := p.cache.Load(inh.JslName)
		if err != nil {
			return nil, nil, err
		}
		parentDoc = p.document(parentJob)
		for _, top := range parentJob.Elements {
			if top.ElementId() == inh.Parent {
				parent = top
				break
			}
		}
	}
	if parent == nil {
		docName := inh.JslName
		if docName == "" || docName == SameDocument {
			docName = documentName(doc.job)
		}
		return nil, nil, errors.NewStructuralError(where, "parent %s not found in document %s", inh.Parent, docName)
	}
	if parent.Kind() != e.Kind() {
		return nil, nil, errors.NewStructuralError(where, "parent %s is a %s, expected a %s", inh.Parent, parent.Kind(), e.Kind())
	}
	return parentDoc, parent.(jsl.InheritableElement), nil
}

// resolveNested resolves every inheriting element nested in elements, which
// belong to doc, so they can be copied as finished elements.
func (p *pass) resolveNested(doc *document, elements []jsl.JobElement) error {
	var err error
	jsl.Walk(elements, func(e jsl.JobElement) bool {
		if err != nil {
			return false
		}
		if ie, ok := e.(jsl.InheritableElement); ok && !ie.Inherits().Resolved() {
			if p.inChain(doc, ie) {
				err = errors.CyclicInheritanceError{Chain: p.chainIds(ie.ElementId())}
				return false
			}
			err = p.resolve(doc, ie)
		}
		return err == nil
	})
	return err
}
