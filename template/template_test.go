// Copyright 2020, Square, Inc.

package template_test

import (
	"fmt"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/go-test/deep"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/square/jsl/builder"
	"github.com/square/jsl/check"
	"github.com/square/jsl/errors"
	"github.com/square/jsl/loader"
	"github.com/square/jsl/template"
	"github.com/square/jsl/test"
)

func newRepo(t *testing.T, l loader.Loader) *template.Repo {
	checker, err := check.NewChecker([]check.CheckFactory{check.BaseCheckFactory{}, check.DefaultCheckFactory{}})
	if err != nil {
		t.Fatal(err)
	}
	logger, _ := logtest.NewNullLogger()
	return template.NewRepo(template.Config{
		Loader:           l,
		Checker:          checker,
		SystemProperties: func(string) (string, bool) { return "", false },
		Logger:           log.NewEntry(logger),
	})
}

func TestGetCaches(t *testing.T) {
	repo := newRepo(t, loader.NewDirLoader(test.SpecPath))

	t1, err := repo.Get("inheritance")
	if err != nil {
		t.Fatal(err)
	}
	t2, err := repo.Get("inheritance")
	if err != nil {
		t.Fatal(err)
	}
	if t1 != t2 {
		t.Error("second Get returned a different template")
	}

	job := t1.Job()
	if !job.Resolved() {
		t.Error("template job has unresolved parents")
	}
	if diff := deep.Equal(repo.Names(), []string{"inheritance"}); diff != nil {
		t.Error(diff)
	}

	repo.Remove("inheritance")
	if len(repo.Names()) != 0 {
		t.Errorf("names after Remove: %v", repo.Names())
	}
}

func TestGetConcurrent(t *testing.T) {
	repo := newRepo(t, loader.NewDirLoader(test.SpecPath))

	const n = 10
	templates := make([]*template.Template, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			templates[i], errs[i] = repo.Get("simple")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if templates[i] != templates[0] {
			t.Errorf("Get %d returned a different template", i)
		}
	}
}

func TestRemoveRereadsDocument(t *testing.T) {
	root := fstest.MapFS{
		"a.xml": &fstest.MapFile{Data: []byte(`<job id="a"><step id="s"><batchlet ref="old"/></step></job>`)},
	}
	repo := newRepo(t, loader.NewFSLoader(root))

	t1, err := repo.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	s, _ := t1.Job().FindStep("s")
	if s.Batchlet.Ref != "old" {
		t.Fatalf("batchlet ref = %s, expected old", s.Batchlet.Ref)
	}

	root["a.xml"] = &fstest.MapFile{Data: []byte(`<job id="a"><step id="s"><batchlet ref="new"/></step></job>`)}

	// Still cached
	t2, err := repo.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if t2 != t1 {
		t.Error("Get before Remove returned a different template")
	}

	repo.Remove("a")
	t3, err := repo.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	s, _ = t3.Job().FindStep("s")
	if s.Batchlet.Ref != "new" {
		t.Errorf("batchlet ref = %s after Remove, expected new", s.Batchlet.Ref)
	}
}

func TestGetErrorsNotPublished(t *testing.T) {
	repo := newRepo(t, loader.NewDirLoader(test.SpecPath))

	_, err := repo.Get("cycle")
	if _, ok := err.(errors.CyclicInheritanceError); !ok {
		t.Errorf("got %T (%v), expected errors.CyclicInheritanceError", err, err)
	}
	if _, err := repo.Get("no-such-job"); err == nil {
		t.Error("no error getting a missing document")
	}
	if len(repo.Names()) != 0 {
		t.Errorf("failed templates published: %v", repo.Names())
	}
}

func TestPutCheckError(t *testing.T) {
	repo := newRepo(t, loader.Map{})
	job, err := builder.NewJob("j").
		Step(builder.NewStep("s").Reader("r")).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	_, err = repo.Put("j", job)
	cerr, ok := err.(template.CheckError)
	if !ok {
		t.Fatalf("got %T (%v), expected template.CheckError", err, err)
	}
	if len(cerr.Errors) != 1 {
		t.Errorf("got %d check errors, expected 1 (missing writer): %v", len(cerr.Errors), cerr.Errors)
	}
}

func TestPutWithExternalParent(t *testing.T) {
	repo := newRepo(t, loader.NewDirLoader(test.SpecPath))
	job, err := builder.NewJob("mine").
		Step(builder.NewStep("s").Batchlet("own")).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	job.Parent = "base-job"
	job.InheritingElements = []string{"mine"}

	tmpl, err := repo.Put("mine", job)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := tmpl.Job().Properties.Get("env"); v != "prod" {
		t.Errorf("env = %q, expected prod from base-job", v)
	}
	if job.Parent != "base-job" {
		t.Error("Put modified the caller's job")
	}
}

func TestSnapshotsIndependent(t *testing.T) {
	repo := newRepo(t, loader.NewDirLoader(test.SpecPath))
	tmpl, err := repo.Get("simple")
	if err != nil {
		t.Fatal(err)
	}

	s1, err := tmpl.Snapshot(map[string]string{"file": "a.csv", "itemCount": "5"})
	if err != nil {
		t.Fatal(err)
	}
	s2, err := tmpl.Snapshot(map[string]string{"file": "b.csv"})
	if err != nil {
		t.Fatal(err)
	}

	if s1.Id == "" || s1.Id == s2.Id {
		t.Errorf("snapshot ids %q and %q, expected unique", s1.Id, s2.Id)
	}
	if v, _ := s1.Job.Properties.Get("inputFile"); v != "/data/in/a.csv" {
		t.Errorf("s1 inputFile = %q", v)
	}
	if v, _ := s2.Job.Properties.Get("inputFile"); v != "/data/in/b.csv" {
		t.Errorf("s2 inputFile = %q", v)
	}
	l1, _ := s1.Job.FindStep("load")
	l2, _ := s2.Job.FindStep("load")
	if l1.Chunk.ItemCount != "5" || l2.Chunk.ItemCount != "10" {
		t.Errorf("item-count %q and %q, expected 5 and 10", l1.Chunk.ItemCount, l2.Chunk.ItemCount)
	}

	if v, _ := tmpl.Job().Properties.Get("inputFile"); v != "#{jobProperties['inputDir']}/#{jobParameters['file']}" {
		t.Errorf("template modified by snapshot: inputFile = %q", v)
	}
}

func TestSnapshotConcurrent(t *testing.T) {
	repo := newRepo(t, loader.NewDirLoader(test.SpecPath))
	tmpl, err := repo.Get("simple")
	if err != nil {
		t.Fatal(err)
	}

	const n = 20
	snaps := make([]*template.Snapshot, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = tmpl.Snapshot(map[string]string{
				"file":      fmt.Sprintf("%d.csv", i),
				"itemCount": fmt.Sprintf("%d", i+1),
			})
		}(i)
	}
	wg.Wait()

	ids := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		ids[snaps[i].Id] = true
		expect := fmt.Sprintf("/data/in/%d.csv", i)
		if v, _ := snaps[i].Job.Properties.Get("inputFile"); v != expect {
			t.Errorf("snapshot %d inputFile = %q, expected %q", i, v, expect)
		}
		load, _ := snaps[i].Job.FindStep("load")
		if count := fmt.Sprintf("%d", i+1); load.Chunk.ItemCount != count {
			t.Errorf("snapshot %d item-count = %q, expected %q", i, load.Chunk.ItemCount, count)
		}
	}
	if len(ids) != n {
		t.Errorf("got %d unique snapshot ids, expected %d", len(ids), n)
	}
	if v, _ := tmpl.Job().Properties.Get("inputFile"); v != "#{jobProperties['inputDir']}/#{jobParameters['file']}" {
		t.Errorf("template modified by snapshots: inputFile = %q", v)
	}
}

func TestPartitionSnapshots(t *testing.T) {
	repo := newRepo(t, loader.Map{})
	job, err := builder.NewJob("p").
		Step(builder.NewStep("s").
			Batchlet("b", "range", "#{partitionPlan['range']}", "who", "#{jobParameters['who']}").
			PartitionPlan("#{jobParameters['n']}", "").
			PartitionProperties("0", "range", "0-99").
			PartitionProperties("1", "range", "100-199").
			PartitionProperties("2", "range", "200-299")).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	tmpl, err := repo.Put("p", job)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := tmpl.Snapshot(map[string]string{"n": "3", "who": "me"})
	if err != nil {
		t.Fatal(err)
	}

	steps, err := snap.PartitionSnapshots("s")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d partitions, expected 3", len(steps))
	}
	expect := []string{"0-99", "100-199", "200-299"}
	for i, s := range steps {
		if v, _ := s.Batchlet.Properties.Get("range"); v != expect[i] {
			t.Errorf("partition %d range = %q, expected %q", i, v, expect[i])
		}
		if v, _ := s.Batchlet.Properties.Get("who"); v != "me" {
			t.Errorf("partition %d who = %q, expected me", i, v)
		}
	}

	orig, _ := snap.Job.FindStep("s")
	if v, _ := orig.Batchlet.Properties.Get("range"); v != "#{partitionPlan['range']}" {
		t.Errorf("snapshot step modified: range = %q", v)
	}

	if _, err := snap.PartitionSnapshots("nope"); err == nil {
		t.Error("no error for missing step")
	}
}
