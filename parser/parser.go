// Copyright 2020, Square, Inc.

// Package parser reads job documents and batch-artifact documents. Job
// documents are parsed into unresolved jsl.Jobs: parents are not merged and
// #{...} expressions are left as-is. XML is the canonical format; YAML
// documents use the same vocabulary.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/square/jsl/errors"
	"github.com/square/jsl/jsl"
)

type Format int

const (
	XML Format = iota
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "xml"
}

// Extensions lists the file extensions recognized for each format, in the
// order loaders should try them.
var Extensions = []string{".xml", ".yaml", ".yml"}

// FormatOf returns the document format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return XML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return XML, fmt.Errorf("unknown document format: %s", path)
}

// ParseJob parses a job document. The returned job is unresolved.
func ParseJob(r io.Reader, format Format) (*jsl.Job, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var job *jsl.Job
	switch format {
	case YAML:
		job, err = parseYAMLJob(data)
	default:
		job, err = parseXMLJob(data)
	}
	if err != nil {
		return nil, err
	}
	if err := validate(job); err != nil {
		return nil, err
	}
	if err := jsl.CheckUniqueIds(job); err != nil {
		return nil, err
	}
	return job, nil
}

// ParseJobFile parses the job document at path, picking the format from the
// file extension. Structural errors are tagged with the file name.
func ParseJobFile(path string) (*jsl.Job, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	job, err := ParseJob(bytes.NewReader(data), format)
	if err != nil {
		return nil, InDocument(err, path)
	}
	return job, nil
}

// InDocument sets the document name on a StructuralError. Other errors are
// returned unchanged.
func InDocument(err error, name string) error {
	if serr, ok := err.(errors.StructuralError); ok && serr.Document == "" {
		serr.Document = name
		return serr
	}
	return err
}

func parseBool(element, attr, v string) (*bool, error) {
	switch strings.TrimSpace(v) {
	case "":
		return nil, nil
	case "true":
		return jsl.Bool(true), nil
	case "false":
		return jsl.Bool(false), nil
	}
	return nil, errors.NewStructuralError(element, "invalid value %q for %s, expected true or false", v, attr)
}
