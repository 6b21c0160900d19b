// Copyright 2017-2020, Square, Inc.

// Package test provides fixture paths for tests.
package test

import (
	"path"
	"path/filepath"
	"runtime"
)

var (
	SpecPath string // Where test job documents are stored.
)

func init() {
	_, filename, _, _ := runtime.Caller(0)
	SpecPath, _ = filepath.Abs(path.Join(filepath.Dir(filename), "specs/"))
}
