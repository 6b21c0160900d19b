// Copyright 2020, Square, Inc.

// Package linter checks job documents without running them: every document
// is loaded, its inheritance resolved, its job checked, and its property
// expressions resolved once against the given job parameters.
package linter

import (
	"fmt"
	"strings"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"

	"github.com/square/jsl/artifacts"
	"github.com/square/jsl/check"
	"github.com/square/jsl/config"
	"github.com/square/jsl/linter/app"
	"github.com/square/jsl/template"
	"github.com/square/jsl/version"
)

type options struct {
	JobDirs   []string `arg:"positional" help:"directories of job documents (default: job_dirs from --config, or .)"`
	Config    string   `arg:"-c" help:"config file"`
	Artifacts string   `arg:"-a" help:"batch-artifacts document; if set, every artifact ref must be declared in it"`
	Job       []string `arg:"-j" help:"lint only these job documents"`
	Param     []string `arg:"-p" help:"job parameter name=value, used to resolve property expressions"`
	Strict    bool     `help:"fail on warnings"`
	Debug     bool
	Version   bool
}

// Run lints the job documents given by args, the command line without the
// program name. It returns an error if any document fails.
func Run(ctx app.Context, args []string) error {
	/* Setup. */
	defaults := app.Defaults()
	if ctx.Hooks.NewLoader == nil {
		ctx.Hooks.NewLoader = defaults.Hooks.NewLoader
	}
	if ctx.Hooks.LoadArtifacts == nil {
		ctx.Hooks.LoadArtifacts = defaults.Hooks.LoadArtifacts
	}
	if ctx.Out == nil {
		ctx.Out = defaults.Out
	}
	printf := func(s string, args ...interface{}) { fmt.Fprintf(ctx.Out, s+"\n", args...) }

	var opts options
	p, err := arg.NewParser(arg.Config{Program: "jsl-lint"}, &opts)
	if err != nil {
		return fmt.Errorf("arg.NewParser: %s", err)
	}
	if err := p.Parse(args); err != nil {
		switch err {
		case arg.ErrHelp:
			p.WriteHelp(ctx.Out)
			return nil
		case arg.ErrVersion:
			opts.Version = true
		default:
			return err
		}
	}
	if opts.Version {
		printf("jsl-lint %s", version.Version())
		return nil
	}

	cfg := config.Default()
	if opts.Config != "" {
		if err := config.Load(opts.Config, &cfg); err != nil {
			return fmt.Errorf("loading config %s: %s", opts.Config, err)
		}
	}
	if len(opts.JobDirs) > 0 {
		cfg.JobDirs = opts.JobDirs
	}
	if opts.Artifacts != "" {
		cfg.ArtifactsFile = opts.Artifacts
	}
	if opts.Debug {
		cfg.LogLevel = "debug"
	}
	params, err := jobParameters(cfg.JobParameters, opts.Param)
	if err != nil {
		return err
	}

	logger := log.New()
	logger.Out = ctx.Out
	if cfg.LogLevel != "" {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger.Level = level
	}

	jobs, err := ctx.Hooks.NewLoader(cfg.JobDirs)
	if err != nil {
		return fmt.Errorf("NewLoader: %s", err)
	}

	/* Static checks. */
	registry, err := artifactRegistry(ctx, cfg, jobs)
	if err != nil {
		return err
	}
	checkFactories := append([]check.CheckFactory{check.BaseCheckFactory{Registry: registry}}, ctx.Factories.CheckFactories...)
	checker, err := check.NewChecker(checkFactories)
	if err != nil {
		return err
	}

	repo := template.NewRepo(template.Config{
		Loader:           jobs,
		Checker:          checker,
		SystemProperties: cfg.SystemPropertyLookup(),
		Logger:           log.NewEntry(logger),
	})

	names := opts.Job
	if len(names) == 0 {
		names, err = jobs.Names()
		if err != nil {
			return err
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no job documents found in %s", strings.Join(cfg.JobDirs, ", "))
	}

	/* Lint every document. */
	failed := 0
	for _, name := range names {
		if !lint(repo, name, params, opts.Strict, printf) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d job documents failed", failed, len(names))
	}
	printf("%d job documents OK", len(names))
	return nil
}

// lint builds and snapshots one job document, printing what it finds. It
// returns false if the document failed.
func lint(repo *template.Repo, name string, params map[string]string, strict bool, printf func(string, ...interface{})) bool {
	t, err := repo.Get(name)
	if err != nil {
		printf("%s: FAIL", name)
		if cerr, ok := err.(template.CheckError); ok {
			for _, e := range cerr.Errors {
				printf("  error: %s", e)
			}
		} else {
			printf("  error: %s", err)
		}
		return false
	}
	for _, w := range t.Warnings {
		printf("%s: warning: %s", name, w)
	}

	// Abstract jobs only exist to be inherited
	if !t.Job().Abstract {
		if _, err := t.Snapshot(params); err != nil {
			printf("%s: FAIL", name)
			printf("  error: %s", err)
			return false
		}
	}

	if strict && len(t.Warnings) > 0 {
		printf("%s: FAIL (strict)", name)
		return false
	}
	printf("%s: OK", name)
	return true
}

// artifactRegistry returns the registry that artifact refs are checked
// against: the artifacts file if given, else the batch-artifacts documents
// found with the jobs. It returns nil if there are none, and refs are not
// checked.
func artifactRegistry(ctx app.Context, cfg config.Resolver, jobs app.JobLoader) (artifacts.Registry, error) {
	if cfg.ArtifactsFile != "" {
		ba, err := ctx.Hooks.LoadArtifacts(cfg.ArtifactsFile)
		if err != nil {
			return nil, fmt.Errorf("loading artifacts: %s", err)
		}
		return artifacts.NewRegistry(ba), nil
	}
	if al, ok := jobs.(interface {
		Artifacts() (artifacts.BatchArtifacts, error)
	}); ok {
		ba, err := al.Artifacts()
		if err != nil {
			return nil, fmt.Errorf("loading artifacts: %s", err)
		}
		if len(ba) > 0 {
			return artifacts.NewRegistry(ba), nil
		}
	}
	return nil, nil
}

// jobParameters merges defaults with name=value pairs from the command line.
func jobParameters(defaults map[string]string, pairs []string) (map[string]string, error) {
	params := map[string]string{}
	for k, v := range defaults {
		params[k] = v
	}
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("invalid job parameter %q, expected name=value", pair)
		}
		params[kv[0]] = kv[1]
	}
	return params, nil
}
