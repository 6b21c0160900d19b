// Copyright 2020, Square, Inc.

package parser

import (
	"bytes"
	"io"
	"io/ioutil"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/square/jsl/artifacts"
	"github.com/square/jsl/errors"
)

type yamlArtifacts struct {
	Refs []struct {
		Id    string `yaml:"id"`
		Class string `yaml:"class"`
	} `yaml:"batch-artifacts"`
}

// ParseArtifacts parses a batch-artifacts document:
//
//   <batch-artifacts>
//     <ref id="myReader" class="com.example.MyReader"/>
//   </batch-artifacts>
//
// or in YAML:
//
//   batch-artifacts:
//     - {id: myReader, class: com.example.MyReader}
func ParseArtifacts(r io.Reader, format Format) (artifacts.BatchArtifacts, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	type ref struct{ id, class string }
	var refs []ref
	switch format {
	case YAML:
		var doc yamlArtifacts
		if err := yaml.UnmarshalStrict(data, &doc); err != nil {
			return nil, errors.NewStructuralError("batch-artifacts", "%s", err)
		}
		for _, r := range doc.Refs {
			refs = append(refs, ref{r.Id, r.Class})
		}
	default:
		root, err := readXML(data)
		if err != nil {
			return nil, err
		}
		if root.name != "batch-artifacts" {
			return nil, errors.NewStructuralError("", "root element is <%s>, expected <batch-artifacts>", root.name)
		}
		if err := checkAttrs(root, "batch-artifacts", nil); err != nil {
			return nil, err
		}
		for _, c := range root.children {
			if c.name != "ref" {
				return nil, unknownElement("batch-artifacts", c)
			}
			if err := checkAttrs(c, "batch-artifacts", []string{"id", "class"}, "id", "class"); err != nil {
				return nil, err
			}
			refs = append(refs, ref{c.attr("id"), c.attr("class")})
		}
	}

	ba := artifacts.BatchArtifacts{}
	for _, r := range refs {
		id, class := strings.TrimSpace(r.id), strings.TrimSpace(r.class)
		if id == "" || class == "" {
			return nil, errors.NewStructuralError("batch-artifacts", "ref must have id and class")
		}
		if _, ok := ba[id]; ok {
			return nil, errors.NewStructuralError("batch-artifacts", "ref %s declared more than once", id)
		}
		ba[id] = class
	}
	return ba, nil
}

// ParseArtifactsFile parses the batch-artifacts document at path. The format
// is taken from the file extension.
func ParseArtifactsFile(path string) (artifacts.BatchArtifacts, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ba, err := ParseArtifacts(bytes.NewReader(data), format)
	if err != nil {
		return nil, InDocument(err, path)
	}
	return ba, nil
}
