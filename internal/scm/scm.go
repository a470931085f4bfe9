// Package scm implements the SCM Adapter (§4.10): the one external
// collaborator this driver calls into directly to decide which
// environments a revision range actually touched, even though the SCM
// system itself is out of scope.
//
// Grounded on original_source/atg_execution/scm_hooks.py for the
// rename-rejection and unchanged-file semantics, and on
// cmd/autobuilder/autobuilder.go for the GitHub API client
// construction GitHubHook reuses.
package scm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vector-atg/atgdriver/internal/runner"
)

// Hook decides, between two revisions, which repository-tracked files
// were not touched at all.
type Hook interface {
	UnchangedFiles(ctx context.Context, before, after string) (map[string]struct{}, error)
}

// GitHook shells out to the git binary found on PATH against a local
// checkout.
type GitHook struct {
	RepositoryPath string
	AllowMoves     bool
	Timeout        time.Duration
}

// UnchangedFiles diffs before..after with `git diff --name-status`,
// rejecting any rename line (`R###`) unless AllowMoves is set, then
// returns every file `git ls-tree -r --name-only after` reports that
// the diff did not touch.
func (h GitHook) UnchangedFiles(ctx context.Context, before, after string) (map[string]struct{}, error) {
	diffRes, err := h.run(ctx, "diff", "--name-status", before, after)
	if err != nil {
		return nil, fmt.Errorf("scm: git diff %s..%s: %w", before, after, err)
	}
	touched, err := parseNameStatus(diffRes.Stdout, h.AllowMoves)
	if err != nil {
		return nil, err
	}

	lsRes, err := h.run(ctx, "ls-tree", "-r", "--name-only", after)
	if err != nil {
		return nil, fmt.Errorf("scm: git ls-tree %s: %w", after, err)
	}

	unchanged := make(map[string]struct{})
	for _, f := range strings.Split(lsRes.Stdout, "\n") {
		if f == "" {
			continue
		}
		if _, ok := touched[f]; !ok {
			unchanged[f] = struct{}{}
		}
	}
	return unchanged, nil
}

func (h GitHook) run(ctx context.Context, args ...string) (runner.Result, error) {
	argv := append([]string{"git"}, args...)
	return runner.Run(ctx, argv, runner.Options{Cwd: h.RepositoryPath, Timeout: h.Timeout})
}

// parseNameStatus turns `git diff --name-status` output into the set
// of paths it touched (both sides of a rename count as touched).
func parseNameStatus(output string, allowMoves bool) (map[string]struct{}, error) {
	touched := make(map[string]struct{})
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		status := fields[0]
		if strings.HasPrefix(status, "R") {
			if !allowMoves {
				return nil, fmt.Errorf("scm: rename detected (%s) and allow_moves is not set", line)
			}
			if len(fields) < 3 {
				continue
			}
			touched[fields[1]] = struct{}{}
			touched[fields[2]] = struct{}{}
			continue
		}
		touched[fields[len(fields)-1]] = struct{}{}
	}
	return touched, nil
}
