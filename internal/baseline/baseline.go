// Package baseline implements the Baseliner (§4.7): the per-environment
// fixed-point loop that reconciles a freshly generated ATG script
// against the tool's own baseline test generator, strips attributes and
// failures that would make the output unstable, and iterates until two
// successive scripts are byte-identical or the iteration budget is
// exhausted.
//
// Grounded on cmd/autobuilder/autobuilder.go's staged external-command
// pipeline (each step is a named, ordered call into the same external
// binary) and original_source/atg_execution/baseline_for_atg.py for the
// state sequence.
package baseline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/xerrors"

	"github.com/vector-atg/atgdriver/internal/project"
	"github.com/vector-atg/atgdriver/internal/runner"
	"github.com/vector-atg/atgdriver/internal/toolcmd"
	"github.com/vector-atg/atgdriver/internal/tst"
)

// Config configures a single Baseliner run for one environment.
type Config struct {
	Env              project.Environment
	Clicast          string // path to the tool's clicast binary; toolcmd.ResolveClicast() if unset by caller
	ScratchDir       string // per-run scratch directory, e.g. the build dir
	ATGScript        string // the supplied ATG script content to baseline
	MaxIterations    int    // N ≥ 1
	FixedPointCheck  bool
	StrictReturnCode bool
	Timeout          time.Duration
	Lookup           tst.OutcomeLookup
}

// Result is the outcome of a successful baseline run.
type Result struct {
	FinalScript string // contents of final.tst
	Iterations  int    // number of strip-failures iterations actually run
	FixedPoint  bool   // true if termination was due to a fixed point, not exhausting N
}

// Run executes the six-state sequence in §4.7 against cfg and returns
// the finalised script.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.MaxIterations < 1 {
		return Result{}, xerrors.New("baseline: MaxIterations must be >= 1")
	}
	if cfg.Clicast == "" {
		cfg.Clicast = toolcmd.ResolveClicast()
	}

	if err := os.MkdirAll(cfg.ScratchDir, 0755); err != nil {
		return Result{}, xerrors.Errorf("baseline: create scratch dir: %w", err)
	}

	// 1. Rebuild: destroy and rebuild the environment, then generate a
	// baseline script with the tool's own generator.
	blPath, err := cfg.rebuildAndBaseline(ctx)
	if err != nil {
		return Result{}, xerrors.Errorf("baseline: rebuild: %w", err)
	}
	blScript, err := readFile(blPath)
	if err != nil {
		return Result{}, xerrors.Errorf("baseline: read bl.tst: %w", err)
	}

	// 2. Merge: splice bl.tst's display attributes into the ATG script.
	merged := tst.MergeAttributes(cfg.ATGScript, blScript)
	mergedPath := cfg.scratchPath("merged.tst")
	if err := os.WriteFile(mergedPath, []byte(merged), 0644); err != nil {
		return Result{}, xerrors.Errorf("baseline: write merged.tst: %w", err)
	}

	// 3. Strip-unchanged.
	strippedUnch := tst.StripUnchangedAttributes(merged)
	strippedUnchPath := cfg.scratchPath("stripped_unch.tst")
	if err := os.WriteFile(strippedUnchPath, []byte(strippedUnch), 0644); err != nil {
		return Result{}, xerrors.Errorf("baseline: write stripped_unch.tst: %w", err)
	}

	// 4. Expecteds: import, execute, actuals-to-expected, extract.
	expectedsPath, err := cfg.importExecuteExtract(ctx, strippedUnchPath, "expecteds.tst", true)
	if err != nil {
		return Result{}, xerrors.Errorf("baseline: expecteds: %w", err)
	}

	// 5. Iterate.
	intermediatePath, err := cfg.rebuildImportExecuteExtract(ctx, expectedsPath, "intermediate.tst")
	if err != nil {
		return Result{}, xerrors.Errorf("baseline: initial iteration: %w", err)
	}
	if err := copyFile(intermediatePath, cfg.scratchPath("stripped_1.tst")); err != nil {
		return Result{}, xerrors.Errorf("baseline: seed stripped_1.tst: %w", err)
	}

	lastPath := cfg.scratchPath("stripped_1.tst")
	fixedPoint := false
	iterations := 0
	for i := 1; i <= cfg.MaxIterations; i++ {
		iterations = i
		curScript, err := readFile(lastPath)
		if err != nil {
			return Result{}, xerrors.Errorf("baseline: read iteration %d: %w", i, err)
		}
		stripped := tst.StripFailures(curScript, cfg.Lookup)
		nextPath := cfg.scratchPath(fmt.Sprintf("stripped_%d.tst", i+1))
		if err := os.WriteFile(nextPath, []byte(stripped), 0644); err != nil {
			return Result{}, xerrors.Errorf("baseline: write iteration %d: %w", i+1, err)
		}

		terminate := false
		if cfg.FixedPointCheck && curScript == stripped {
			terminate = true
			fixedPoint = true
		}

		reExtracted, err := cfg.rebuildImportExecuteExtract(ctx, nextPath, fmt.Sprintf("stripped_%d.tst", i+1))
		if err != nil {
			return Result{}, xerrors.Errorf("baseline: re-extract iteration %d: %w", i+1, err)
		}
		lastPath = reExtracted

		if terminate {
			break
		}
	}

	// 6. Finalise.
	finalPath := cfg.scratchPath("final.tst")
	if err := copyFile(lastPath, finalPath); err != nil {
		return Result{}, xerrors.Errorf("baseline: finalise: %w", err)
	}
	finalScript, err := readFile(finalPath)
	if err != nil {
		return Result{}, xerrors.Errorf("baseline: read final.tst: %w", err)
	}

	if err := compactScratch(cfg.ScratchDir); err != nil {
		return Result{}, xerrors.Errorf("baseline: compact scratch dir: %w", err)
	}

	return Result{FinalScript: finalScript, Iterations: iterations, FixedPoint: fixedPoint}, nil
}

func (cfg Config) scratchPath(name string) string {
	return filepath.Join(cfg.ScratchDir, name)
}

func (cfg Config) run(ctx context.Context, argv []string) (runner.Result, error) {
	return runner.Run(ctx, argv, runner.Options{Cwd: cfg.Env.BuildLocation, Timeout: cfg.Timeout})
}

// rebuildAndBaseline implements state 1: remove the tool's built
// environment directory if present (a subdirectory of BuildLocation
// named after the environment, distinct from its .env/.cfg files, so
// that the rebuild script below starts from nothing), rebuild it from
// script, then run the baseline-test generator.
func (cfg Config) rebuildAndBaseline(ctx context.Context) (string, error) {
	if err := os.RemoveAll(filepath.Join(cfg.Env.BuildLocation, cfg.Env.Name)); err != nil && !os.IsNotExist(err) {
		return "", xerrors.Errorf("remove built environment: %w", err)
	}
	if _, err := cfg.run(ctx, toolcmd.Rebuild(cfg.Clicast, cfg.Env.Name)); err != nil {
		return "", xerrors.Errorf("rebuild script: %w", err)
	}
	blPath := cfg.scratchPath("bl.tst")
	if _, err := cfg.run(ctx, toolcmd.Baseline(cfg.Clicast, cfg.Env.Name, blPath)); err != nil {
		return "", xerrors.Errorf("baseline generator: %w", err)
	}
	return blPath, nil
}

// importExecuteExtract implements state 4's import/execute/
// actuals-to-expected/extract sequence.
func (cfg Config) importExecuteExtract(ctx context.Context, scriptPath, outName string, actualsToExpected bool) (string, error) {
	if _, err := cfg.run(ctx, toolcmd.Import(cfg.Clicast, scriptPath)); err != nil {
		return "", xerrors.Errorf("import %s: %w", scriptPath, err)
	}
	res, err := cfg.run(ctx, toolcmd.Execute(cfg.Clicast))
	if err != nil {
		return "", xerrors.Errorf("execute: %w", err)
	}
	if cfg.StrictReturnCode && res.ExitCode != 0 {
		return "", xerrors.Errorf("execute exited %d (strict_rc)", res.ExitCode)
	}
	if actualsToExpected {
		if _, err := cfg.run(ctx, toolcmd.ActualsToExpected(cfg.Clicast)); err != nil {
			return "", xerrors.Errorf("actuals-to-expected: %w", err)
		}
	}
	outPath := cfg.scratchPath(outName)
	if _, err := cfg.run(ctx, toolcmd.Extract(cfg.Clicast, outPath)); err != nil {
		return "", xerrors.Errorf("extract %s: %w", outName, err)
	}
	if !fileExists(outPath) {
		return "", xerrors.Errorf("extract did not produce %s", outName)
	}
	return outPath, nil
}

// rebuildImportExecuteExtract implements the "rebuild, import, execute,
// extract" sub-sequence used repeatedly in state 5, each time starting
// from a freshly destroyed and rebuilt environment.
func (cfg Config) rebuildImportExecuteExtract(ctx context.Context, scriptPath, outName string) (string, error) {
	if err := os.RemoveAll(filepath.Join(cfg.Env.BuildLocation, cfg.Env.Name)); err != nil && !os.IsNotExist(err) {
		return "", xerrors.Errorf("remove built environment: %w", err)
	}
	if _, err := cfg.run(ctx, toolcmd.Rebuild(cfg.Clicast, cfg.Env.Name)); err != nil {
		return "", xerrors.Errorf("rebuild: %w", err)
	}
	return cfg.importExecuteExtract(ctx, scriptPath, outName, false)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
