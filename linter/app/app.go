// Copyright 2020, Square, Inc.

// Package app provides app-wide data structs and functions.
package app

import (
	"io"
	"os"

	"github.com/square/jsl/artifacts"
	"github.com/square/jsl/check"
	"github.com/square/jsl/loader"
	"github.com/square/jsl/parser"
)

// Context represents how to run linter. A context is passed to linter.Run().
// A default context is created in main.go. Wrapper code can integrate with
// linter by passing a custom context to linter.Run(). Integration is done
// primarily with hooks and factories.
type Context struct {
	// for integration with other code
	Factories Factories
	Hooks     Hooks

	// Where results are printed. Defaults to os.Stdout.
	Out io.Writer
}

type Factories struct {
	CheckFactories []check.CheckFactory // All additional check factories to run
}

// JobLoader loads job documents and lists the ones it can load.
type JobLoader interface {
	loader.Loader
	Names() ([]string, error)
}

type Hooks struct {
	// NewLoader returns the loader for the given job dirs.
	NewLoader func(jobDirs []string) (JobLoader, error)

	// LoadArtifacts loads the batch-artifacts document given with
	// --artifacts or artifacts_file.
	LoadArtifacts func(file string) (artifacts.BatchArtifacts, error)
}

func Defaults() Context {
	return Context{
		Factories: Factories{
			CheckFactories: []check.CheckFactory{check.DefaultCheckFactory{}},
		},
		Hooks: Hooks{
			NewLoader: func(jobDirs []string) (JobLoader, error) {
				return loader.NewDirLoader(jobDirs...), nil
			},
			LoadArtifacts: parser.ParseArtifactsFile,
		},
		Out: os.Stdout,
	}
}
