// Copyright 2020, Square, Inc.

package loader

import (
	"bytes"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/orcaman/concurrent-map"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/square/jsl/artifacts"
	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
	"github.com/square/jsl/parser"
)

// Directories searched, in order, in every root for job documents.
var JobDirs = []string{"", "META-INF/batch-jobs"}

// Artifact documents tried, in order, in every root.
var ArtifactFiles = []string{"batch.xml", "META-INF/batch.xml", "batch.yaml", "META-INF/batch.yaml"}

// FSLoader loads job documents from one or more file systems, the first root
// that has a document winning. A document named "foo" is found at
// foo.xml, foo.yaml or foo.yml in any of JobDirs.
//
// Parsed documents are cached by name. Concurrent loads of the same name
// parse it once.
type FSLoader struct {
	roots []fs.FS
	cache cmap.ConcurrentMap // name => *jsl.Job (unresolved, never handed out)
	group singleflight.Group
}

func NewFSLoader(roots ...fs.FS) *FSLoader {
	return &FSLoader{
		roots: roots,
		cache: cmap.New(),
	}
}

// NewDirLoader returns an FSLoader over the given directories.
func NewDirLoader(dirs ...string) *FSLoader {
	roots := make([]fs.FS, len(dirs))
	for i, dir := range dirs {
		roots[i] = os.DirFS(dir)
	}
	return NewFSLoader(roots...)
}

func (l *FSLoader) Load(name string) (*jsl.Job, error) {
	if v, ok := l.cache.Get(name); ok {
		return v.(*jsl.Job).Clone(), nil
	}
	v, err, _ := l.group.Do(name, func() (interface{}, error) {
		if v, ok := l.cache.Get(name); ok {
			return v, nil
		}
		job, err := l.parse(name)
		if err != nil {
			return nil, err
		}
		l.cache.Set(name, job)
		return job, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*jsl.Job).Clone(), nil
}

// Forget drops a cached document so the next Load reads it again.
func (l *FSLoader) Forget(name string) {
	l.cache.Remove(name)
}

func (l *FSLoader) parse(name string) (*jsl.Job, error) {
	for _, root := range l.roots {
		for _, file := range candidates(name) {
			data, err := fs.ReadFile(root, file)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, err
			}
			format, err := parser.FormatOf(file)
			if err != nil {
				return nil, err
			}
			job, err := parser.ParseJob(bytes.NewReader(data), format)
			if err != nil {
				return nil, parser.InDocument(err, file)
			}
			if job.Id != name {
				job.JobXmlName = name
			}
			log.WithFields(log.Fields{"document": file, "job": job.Id}).Debug("loaded job document")
			return job, nil
		}
	}
	return nil, errors.JobNotFound{Name: name}
}

func candidates(name string) []string {
	var files []string
	if _, err := parser.FormatOf(name); err == nil {
		for _, dir := range JobDirs {
			files = append(files, path.Join(dir, name))
		}
	}
	for _, dir := range JobDirs {
		for _, ext := range parser.Extensions {
			files = append(files, path.Join(dir, name+ext))
		}
	}
	return files
}

// Artifacts reads the batch-artifacts documents of every root. Refs declared
// in earlier roots win.
func (l *FSLoader) Artifacts() (artifacts.BatchArtifacts, error) {
	all := artifacts.BatchArtifacts{}
	for _, root := range l.roots {
		for _, file := range ArtifactFiles {
			data, err := fs.ReadFile(root, file)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, err
			}
			format, _ := parser.FormatOf(file)
			ba, err := parser.ParseArtifacts(bytes.NewReader(data), format)
			if err != nil {
				return nil, parser.InDocument(err, file)
			}
			for ref, class := range ba {
				if _, ok := all[ref]; !ok {
					all[ref] = class
				}
			}
		}
	}
	return all, nil
}

// Names returns the name of every job document in every root, sorted and
// without duplicates. Artifact documents are not listed. Load accepts every
// name returned.
func (l *FSLoader) Names() ([]string, error) {
	skip := map[string]bool{}
	for _, file := range ArtifactFiles {
		skip[file] = true
	}
	set := map[string]bool{}
	for _, root := range l.roots {
		for _, dir := range JobDirs {
			readDir := dir
			if readDir == "" {
				readDir = "."
			}
			entries, err := fs.ReadDir(root, readDir)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, err
			}
			for _, e := range entries {
				if e.IsDir() || skip[path.Join(dir, e.Name())] {
					continue
				}
				if _, err := parser.FormatOf(e.Name()); err != nil {
					continue
				}
				set[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = true
			}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
