package main

import (
	"testing"

	"github.com/vector-atg/atgdriver/internal/config"
	"github.com/vector-atg/atgdriver/internal/scm"
)

// withFlags resets the flags validateFlags reads to their defaults,
// applies set, then runs fn. Every call resets first, so test order
// doesn't matter; nothing is restored after fn returns.
func withFlags(t *testing.T, set func(), fn func()) {
	t.Helper()
	*configPy, *skipBuild, *cleanUp, *verbose, *quiet, *doReport, *baselineIterations =
		"", false, false, false, false, false, 10
	set()
	fn()
}

func TestValidateFlagsRequiresConfigPy(t *testing.T) {
	withFlags(t, func() {
		*skipBuild = true
	}, func() {
		if err := validateFlags(); err == nil {
			t.Fatal("validateFlags: expected error for missing --config_py")
		}
	})
}

func TestValidateFlagsRequiresSkipBuildXorCleanUp(t *testing.T) {
	withFlags(t, func() {
		*configPy = "x"
	}, func() {
		if err := validateFlags(); err == nil {
			t.Fatal("validateFlags: expected error when neither --skip_build nor --clean_up is set")
		}
	})
	withFlags(t, func() {
		*configPy = "x"
		*skipBuild = true
		*cleanUp = true
	}, func() {
		if err := validateFlags(); err == nil {
			t.Fatal("validateFlags: expected error when both --skip_build and --clean_up are set")
		}
	})
	withFlags(t, func() {
		*configPy = "x"
		*skipBuild = true
	}, func() {
		if err := validateFlags(); err != nil {
			t.Fatalf("validateFlags: %v", err)
		}
	})
}

func TestValidateFlagsVerboseQuietMutuallyExclusive(t *testing.T) {
	withFlags(t, func() {
		*configPy = "x"
		*skipBuild = true
		*verbose = true
		*quiet = true
	}, func() {
		if err := validateFlags(); err == nil {
			t.Fatal("validateFlags: expected error for --verbose and --quiet together")
		}
	})
}

func TestValidateFlagsReportQuietMutuallyExclusive(t *testing.T) {
	withFlags(t, func() {
		*configPy = "x"
		*skipBuild = true
		*doReport = true
		*quiet = true
	}, func() {
		if err := validateFlags(); err == nil {
			t.Fatal("validateFlags: expected error for --report and --quiet together")
		}
	})
}

func TestValidateFlagsBaselineIterationsMustBePositive(t *testing.T) {
	withFlags(t, func() {
		*configPy = "x"
		*skipBuild = true
		*baselineIterations = 0
	}, func() {
		if err := validateFlags(); err == nil {
			t.Fatal("validateFlags: expected error for --baseline_iterations < 1")
		}
	})
}

func TestApplyAllowMovesOverlaysGitHook(t *testing.T) {
	old := *allowMoves
	defer func() { *allowMoves = old }()
	*allowMoves = true

	cfg := config.Configuration{FindUnchangedFiles: scm.GitHook{RepositoryPath: "/repo"}}
	applyAllowMoves(&cfg)

	hook, ok := cfg.FindUnchangedFiles.(scm.GitHook)
	if !ok {
		t.Fatalf("FindUnchangedFiles = %T, want scm.GitHook", cfg.FindUnchangedFiles)
	}
	if !hook.AllowMoves {
		t.Error("applyAllowMoves did not set AllowMoves on the GitHook")
	}
}

func TestApplyAllowMovesNoopWhenFlagUnset(t *testing.T) {
	old := *allowMoves
	defer func() { *allowMoves = old }()
	*allowMoves = false

	cfg := config.Configuration{FindUnchangedFiles: scm.GitHook{RepositoryPath: "/repo"}}
	applyAllowMoves(&cfg)

	hook := cfg.FindUnchangedFiles.(scm.GitHook)
	if hook.AllowMoves {
		t.Error("applyAllowMoves set AllowMoves despite the flag being unset")
	}
}
