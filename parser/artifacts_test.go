// Copyright 2020, Square, Inc.

package parser_test

import (
	"os"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/square/jsl/artifacts"
	"github.com/square/jsl/parser"
	"github.com/square/jsl/test"
)

func TestParseArtifactsXML(t *testing.T) {
	f, err := os.Open(test.SpecPath + "/batch.xml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ba, err := parser.ParseArtifacts(f, parser.XML)
	if err != nil {
		t.Fatal(err)
	}
	expect := artifacts.BatchArtifacts{
		"prepareBatchlet": "com.example.PrepareBatchlet",
		"csvReader":       "com.example.CsvReader",
		"dbWriter":        "com.example.DbWriter",
	}
	if diff := deep.Equal(ba, expect); diff != nil {
		t.Error(diff)
	}
}

func TestParseArtifactsYAML(t *testing.T) {
	doc := "batch-artifacts:\n  - {id: r, class: com.example.R}\n"
	ba, err := parser.ParseArtifacts(strings.NewReader(doc), parser.YAML)
	if err != nil {
		t.Fatal(err)
	}
	if ba["r"] != "com.example.R" {
		t.Errorf("got %v", ba)
	}
}

func TestParseArtifactsDuplicate(t *testing.T) {
	doc := `<batch-artifacts><ref id="a" class="A"/><ref id="a" class="B"/></batch-artifacts>`
	_, err := parser.ParseArtifacts(strings.NewReader(doc), parser.XML)
	expectStructuralError(t, err, "declared more than once")
}

func TestParseArtifactsMissingClass(t *testing.T) {
	doc := `<batch-artifacts><ref id="a"/></batch-artifacts>`
	_, err := parser.ParseArtifacts(strings.NewReader(doc), parser.XML)
	expectStructuralError(t, err, "missing required attribute class")
}
