// Package config builds the Configuration object (§6) that drives a
// run: the repository and project paths, where final.tst archives are
// written, the SCM hook (if any), and the environment variables passed
// to every external command.
//
// The original tooling loaded a Python module at runtime to produce
// this record; LoadScript replaces that with running a sidecar script
// as a subprocess (via internal/runner) that prints a JSON-encoded
// wireConfiguration to stdout, following the autobuilder's own
// json.Marshal/Unmarshal-over-a-record pattern
// (cmd/autobuilder/autobuilder.go). A statically compiled-in Provider
// works the same way without the subprocess hop, for deployments that
// don't need per-run scripting.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/vector-atg/atgdriver/internal/runner"
	"github.com/vector-atg/atgdriver/internal/scm"
)

// Options are the CLI-derived settings passed to a Provider or sidecar
// script so it can tailor the Configuration it returns (e.g. choosing a
// different final_tst_path for a dry run).
type Options struct {
	DryRun  bool
	Verbose bool
}

// Configuration is the record described in §6: repository_path,
// project_path, final_tst_path, find_unchanged_files (nullable),
// store_updated_tests, options, env_vars.
type Configuration struct {
	RepositoryPath string
	ProjectPath    string
	// FinalTstPath defaults to filepath.Join(ProjectPath, "environment")
	// when left empty, per §6.
	FinalTstPath string

	// FindUnchangedFiles is nil when no SCM hook is configured, in which
	// case every environment is impacted (§4.5).
	FindUnchangedFiles scm.Hook

	// StoreUpdatedTests is invoked once per run with the set of
	// archive paths Stage D wrote, after the run completes. A nil value
	// means no further action is taken.
	StoreUpdatedTests func(paths map[string]struct{}) error

	Options Options
	EnvVars map[string]string
}

// Provider is the compiled-in alternative to LoadScript: a function
// that builds a Configuration directly from Options, with no
// subprocess hop.
type Provider func(options Options) (Configuration, error)

// wireConfiguration is the JSON shape a sidecar script prints to
// stdout: the static subset of Configuration that can cross a process
// boundary. FindUnchangedFiles/StoreUpdatedTests are func-valued and
// therefore derived, not decoded, from the SCM field below.
type wireConfiguration struct {
	RepositoryPath string            `json:"repository_path"`
	ProjectPath    string            `json:"project_path"`
	FinalTstPath   string            `json:"final_tst_path"`
	EnvVars        map[string]string `json:"env_vars"`
	SCM            *wireSCM          `json:"scm"`
}

// wireSCM selects and parameterises the SCM hook, if any.
type wireSCM struct {
	Kind        string `json:"kind"` // "git", "github", or "" (no hook)
	AllowMoves  bool   `json:"allow_moves"`
	AccessToken string `json:"access_token"` // github only
	RepoURL     string `json:"repo_url"`     // github only
}

// LoadScript runs the script at path as a subprocess with options
// marshalled to JSON and passed as its single argument, and decodes its
// stdout as a wireConfiguration.
func LoadScript(ctx context.Context, path string, options Options, timeout time.Duration) (Configuration, error) {
	optsJSON, err := json.Marshal(options)
	if err != nil {
		return Configuration{}, fmt.Errorf("config: marshal options: %w", err)
	}

	res, err := runner.Run(ctx, []string{path, string(optsJSON)}, runner.Options{
		Timeout: timeout,
	})
	if err != nil {
		return Configuration{}, fmt.Errorf("config: invoke %s: %w", path, err)
	}
	if res.ExitCode != 0 {
		return Configuration{}, fmt.Errorf("config: %s exited %d: %s", path, res.ExitCode, res.Stderr)
	}

	var wc wireConfiguration
	if err := json.Unmarshal([]byte(res.Stdout), &wc); err != nil {
		return Configuration{}, fmt.Errorf("config: decode %s output: %w", path, err)
	}
	return fromWire(ctx, wc)
}

func fromWire(ctx context.Context, wc wireConfiguration) (Configuration, error) {
	cfg := Configuration{
		RepositoryPath: wc.RepositoryPath,
		ProjectPath:    wc.ProjectPath,
		FinalTstPath:   wc.FinalTstPath,
		EnvVars:        wc.EnvVars,
	}
	if cfg.FinalTstPath == "" {
		cfg.FinalTstPath = filepath.Join(cfg.ProjectPath, "environment")
	}

	if wc.SCM != nil {
		switch wc.SCM.Kind {
		case "git":
			cfg.FindUnchangedFiles = scm.GitHook{RepositoryPath: cfg.RepositoryPath, AllowMoves: wc.SCM.AllowMoves}
		case "github":
			hook, err := scm.NewGitHubHook(ctx, wc.SCM.RepoURL, wc.SCM.AccessToken, wc.SCM.AllowMoves)
			if err != nil {
				return Configuration{}, fmt.Errorf("config: github hook: %w", err)
			}
			cfg.FindUnchangedFiles = hook
		case "", "none":
		default:
			return Configuration{}, fmt.Errorf("config: unknown scm kind %q", wc.SCM.Kind)
		}
	}

	return cfg, nil
}
