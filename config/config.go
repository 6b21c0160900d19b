// Copyright 2017-2020, Square, Inc.

package config

import (
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

///////////////////////////////////////////////////////////////////////////////
// High-Level Config Structs
///////////////////////////////////////////////////////////////////////////////

// The config used to load, resolve, and check job documents. This is read
// from in linter/app and by programs embedding a template.Repo.
type Resolver struct {
	// Directories searched for job documents, in order. A document is looked
	// for in each directory, then in its META-INF/batch-jobs subdirectory.
	JobDirs []string `yaml:"job_dirs"`

	// The batch-artifacts document used to check that every artifact ref in a
	// job resolves. Optional; if not set, artifact refs are not checked.
	ArtifactsFile string `yaml:"artifacts_file"`

	// The logrus level (ex: "debug", "info", "warn").
	LogLevel string `yaml:"log_level"`

	// Values for systemProperties expressions. These take precedence over
	// environment variables.
	SystemProperties map[string]string `yaml:"system_properties"`

	// Default values for jobParameters expressions, used when a snapshot is
	// made without explicit parameters.
	JobParameters map[string]string `yaml:"job_parameters"`
}

// Default returns the config used when no config file is given: the current
// directory is the only job dir and logging is at info.
func Default() Resolver {
	return Resolver{
		JobDirs:  []string{"."},
		LogLevel: "info",
	}
}

// SystemPropertyLookup returns a lookup func for systemProperties expressions:
// SystemProperties first, then the environment.
func (c Resolver) SystemPropertyLookup() func(string) (string, bool) {
	props := map[string]string{}
	for k, v := range c.SystemProperties {
		props[k] = v
	}
	return func(name string) (string, bool) {
		if v, ok := props[name]; ok {
			return v, true
		}
		return os.LookupEnv(name)
	}
}

///////////////////////////////////////////////////////////////////////////////
// Loading Config
///////////////////////////////////////////////////////////////////////////////

// Load loads a configuration file into the struct pointed to by the
// configStruct argument. Unknown fields are an error.
func Load(configFile string, configStruct interface{}) error {
	// Make sure the file exists.
	_, err := os.Stat(configFile)
	if err != nil {
		return err
	}

	data, err := ioutil.ReadFile(configFile)
	if err != nil {
		return err
	}

	return yaml.UnmarshalStrict(data, configStruct)
}
