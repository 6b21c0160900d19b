// Copyright 2020, Square, Inc.

package template

import (
	"fmt"
	"strconv"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/square/jsl/jsl"
	"github.com/square/jsl/resolve"
)

// Template is a published, inheritance-resolved job. It is immutable: every
// accessor returns a copy.
type Template struct {
	Name     string
	Warnings []error // check warnings

	job      *jsl.Job
	sysProps func(string) (string, bool)
	logger   *log.Entry
}

// Job returns a copy of the resolved job, property expressions unresolved.
func (t *Template) Job() *jsl.Job {
	return t.job.Clone()
}

// Snapshot makes an execution-private copy of the job with every property
// expression resolved against params. partitionPlan expressions are left
// for PartitionSnapshots.
func (t *Template) Snapshot(params map[string]string) (*Snapshot, error) {
	id := xid.New().String()
	s := &Snapshot{
		Id:         id,
		Job:        t.job.Clone(),
		Parameters: copyParams(params),
		logger:     t.logger.WithField("snapshot", id),
		sysProps:   t.sysProps,
	}
	r := s.resolver(nil)
	if err := r.ResolveJob(s.Job); err != nil {
		return nil, err
	}
	return s, nil
}

func copyParams(params map[string]string) map[string]string {
	c := make(map[string]string, len(params))
	for k, v := range params {
		c[k] = v
	}
	return c
}

// Snapshot is a resolved copy of a Template for one execution. It belongs to
// the execution; nothing else references it.
type Snapshot struct {
	Id         string // unique execution id
	Job        *jsl.Job
	Parameters map[string]string

	logger   *log.Entry
	sysProps func(string) (string, bool)
}

func (s *Snapshot) resolver(plan *jsl.Properties) *resolve.Resolver {
	return &resolve.Resolver{
		JobParameters:        s.Parameters,
		SystemProperties:     s.sysProps,
		PartitionPlan:        plan,
		ResolvePartitionPlan: plan != nil,
		Logger:               s.logger,
	}
}

// PartitionSnapshots returns one copy of a partitioned step per partition,
// in partition order, each with partitionPlan expressions resolved against
// that partition's plan properties. Partitions are resolved concurrently.
func (s *Snapshot) PartitionSnapshots(stepId string) ([]*jsl.Step, error) {
	step, ok := s.Job.FindStep(stepId)
	if !ok {
		return nil, fmt.Errorf("step %s not found in job %s", stepId, s.Job.Id)
	}
	if step.Partition == nil || step.Partition.Plan == nil {
		return nil, fmt.Errorf("step %s has no partition plan", stepId)
	}
	plan := step.Partition.Plan
	n, err := strconv.Atoi(plan.Partitions)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("step %s: invalid partitions %q", stepId, plan.Partitions)
	}

	steps := make([]*jsl.Step, n)
	for i := range steps {
		steps[i] = step.Clone()
	}

	var g errgroup.Group
	for i := range steps {
		i := i
		g.Go(func() error {
			props := plan.PartitionProperties(strconv.Itoa(i))
			if props == nil {
				props = jsl.NewProperties()
			}
			return s.resolver(props).ResolveStep(s.Job, steps[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return steps, nil
}
