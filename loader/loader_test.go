// Copyright 2020, Square, Inc.

package loader_test

import (
	"io/fs"
	"os"
	"testing"
	"testing/fstest"

	"github.com/go-test/deep"

	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
	"github.com/square/jsl/loader"
	"github.com/square/jsl/test"
)

func TestDirLoader(t *testing.T) {
	l := loader.NewDirLoader(test.SpecPath)

	job, err := l.Load("shared-steps")
	if err != nil {
		t.Fatal(err)
	}
	if job.Id != "shared-steps" {
		t.Errorf("job id = %s, expected shared-steps", job.Id)
	}
	if job.JobXmlName != "" {
		t.Errorf("JobXmlName = %s, expected empty (name == id)", job.JobXmlName)
	}
	if len(job.Elements) != 3 {
		t.Errorf("got %d elements, expected 3", len(job.Elements))
	}

	// Extension given explicitly
	job2, err := l.Load("shared-steps.xml")
	if err != nil {
		t.Fatal(err)
	}
	if job2.JobXmlName != "shared-steps.xml" {
		t.Errorf("JobXmlName = %s, expected shared-steps.xml", job2.JobXmlName)
	}
}

func TestLoadReturnsCopies(t *testing.T) {
	l := loader.NewDirLoader(test.SpecPath)

	job1, err := l.Load("simple")
	if err != nil {
		t.Fatal(err)
	}
	job1.Id = "changed"
	job1.Elements = nil

	job2, err := l.Load("simple")
	if err != nil {
		t.Fatal(err)
	}
	if job2.Id != "simple" || len(job2.Elements) != 4 {
		t.Errorf("cached job modified through a returned copy: id %s, %d elements", job2.Id, len(job2.Elements))
	}
}

func TestLoadNotFound(t *testing.T) {
	l := loader.NewDirLoader(test.SpecPath)
	_, err := l.Load("does-not-exist")
	if _, ok := err.(errors.JobNotFound); !ok {
		t.Errorf("got %T (%v), expected errors.JobNotFound", err, err)
	}
}

func TestFSLoaderRootsAndDirs(t *testing.T) {
	first := fstest.MapFS{
		"META-INF/batch-jobs/a.xml": &fstest.MapFile{Data: []byte(`<job id="a"><step id="s1"><batchlet ref="first"/></step></job>`)},
	}
	second := fstest.MapFS{
		"a.xml": &fstest.MapFile{Data: []byte(`<job id="a"><step id="s1"><batchlet ref="second"/></step></job>`)},
		"b.yaml": &fstest.MapFile{Data: []byte("job:\n  id: b\n  elements:\n    - step:\n        id: s1\n        batchlet:\n          ref: fromYaml\n")},
	}
	l := loader.NewFSLoader(first, second)

	a, err := l.Load("a")
	if err != nil {
		t.Fatal(err)
	}
	if ref := a.Elements[0].(*jsl.Step).Batchlet.Ref; ref != "first" {
		t.Errorf("batchlet ref = %s, expected first (earlier root wins)", ref)
	}

	b, err := l.Load("b")
	if err != nil {
		t.Fatal(err)
	}
	if ref := b.Elements[0].(*jsl.Step).Batchlet.Ref; ref != "fromYaml" {
		t.Errorf("batchlet ref = %s, expected fromYaml", ref)
	}
}

func TestFSLoaderParseError(t *testing.T) {
	root := fstest.MapFS{
		"bad.xml": &fstest.MapFile{Data: []byte(`<job id="bad"><nope/></job>`)},
	}
	_, err := loader.NewFSLoader(root).Load("bad")
	serr, ok := err.(errors.StructuralError)
	if !ok {
		t.Fatalf("got %T (%v), expected errors.StructuralError", err, err)
	}
	if serr.Document != "bad.xml" {
		t.Errorf("Document = %s, expected bad.xml", serr.Document)
	}
}

// deniedFS fails every open with a permission error.
type deniedFS struct{}

func (deniedFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

func TestFSLoaderReadError(t *testing.T) {
	l := loader.NewFSLoader(deniedFS{})

	_, err := l.Load("a")
	if _, ok := err.(errors.JobNotFound); ok || err == nil {
		t.Fatalf("got %T (%v), expected the read error", err, err)
	}
	if !os.IsPermission(err) {
		t.Errorf("got %v, expected a permission error", err)
	}

	if _, err := l.Artifacts(); !os.IsPermission(err) {
		t.Errorf("Artifacts: got %v, expected a permission error", err)
	}
}

func TestArtifacts(t *testing.T) {
	l := loader.NewDirLoader(test.SpecPath)
	got, err := l.Artifacts()
	if err != nil {
		t.Fatal(err)
	}
	if got["csvReader"] != "com.example.CsvReader" {
		t.Errorf("csvReader = %q, expected com.example.CsvReader", got["csvReader"])
	}
	if len(got) != 3 {
		t.Errorf("got %d artifacts, expected 3", len(got))
	}
}

func TestNames(t *testing.T) {
	first := fstest.MapFS{
		"META-INF/batch-jobs/a.xml": &fstest.MapFile{Data: []byte(`<job id="a"/>`)},
		"META-INF/batch.xml":        &fstest.MapFile{Data: []byte(`<batch-artifacts/>`)},
		"README.md":                 &fstest.MapFile{Data: []byte("not a job")},
	}
	second := fstest.MapFS{
		"a.yaml":    &fstest.MapFile{Data: []byte("job:\n  id: a\n")},
		"c.yml":     &fstest.MapFile{Data: []byte("job:\n  id: c\n")},
		"batch.xml": &fstest.MapFile{Data: []byte(`<batch-artifacts/>`)},
	}
	got, err := loader.NewFSLoader(first, second).Names()
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, []string{"a", "c"}); diff != nil {
		t.Error(diff)
	}
}

func TestMap(t *testing.T) {
	m := loader.Map{
		"j": &jsl.Job{Id: "j", Properties: jsl.NewProperties("k", "v")},
	}
	job, err := m.Load("j")
	if err != nil {
		t.Fatal(err)
	}
	job.Properties.Set("k", "changed")
	if v, _ := m["j"].Properties.Get("k"); v != "v" {
		t.Errorf("Map.Load did not return a copy")
	}
	if _, err := m.Load("x"); err == nil {
		t.Error("no error loading missing job")
	}
}

func TestPassCache(t *testing.T) {
	m := loader.Map{"j": &jsl.Job{Id: "j"}}
	c := loader.NewPassCache(m)

	j1, err := c.Load("j")
	if err != nil {
		t.Fatal(err)
	}
	j2, err := c.Load("j")
	if err != nil {
		t.Fatal(err)
	}
	if j1 != j2 {
		t.Error("PassCache returned different jobs for the same name")
	}

	own := &jsl.Job{Id: "own"}
	c.Put("own", own)
	got, err := c.Load("own")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, own); diff != nil || got != own {
		t.Error("Put job not returned by Load")
	}
}
