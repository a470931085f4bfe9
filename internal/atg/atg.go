package atg

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vector-atg/atgdriver"
	"github.com/vector-atg/atgdriver/internal/baseline"
	"github.com/vector-atg/atgdriver/internal/depgraph"
	"github.com/vector-atg/atgdriver/internal/exec2"
	"github.com/vector-atg/atgdriver/internal/logging"
	"github.com/vector-atg/atgdriver/internal/project"
	"github.com/vector-atg/atgdriver/internal/tst"
)

// Config configures a Process run across every impacted environment.
type Config struct {
	Envs     []project.Environment
	Routines map[string]depgraph.RoutineInventory // keyed by Environment.Name

	Engine EngineConfig

	Clicast          string
	BaselineN        int // N >= 1
	FixedPointCheck  bool
	StrictReturnCode bool
	Timeout          time.Duration
	Lookup           tst.OutcomeLookup

	ArchiveDir  string // final_tst_path root; each env gets <ArchiveDir>/<env>/final.tst
	ScratchRoot string // per-env Baseliner scratch dirs live under here

	Pool *exec2.Pool
	Log  *logging.Logger
}

type routineItem struct {
	env     project.Environment
	unit    string
	routine string
}

// EnvSummary is one environment's outcome across Stages A-D, the
// detail internal/report renders per §4.11. Err is set, and every
// field other than Name left at its zero value, when the environment's baseline
// or splice stage failed fatally — that environment is skipped, but
// the run continues with the rest.
type EnvSummary struct {
	Name               string
	RoutinesOK         int
	RoutinesFailed     int
	BaselineIterations int
	FixedPoint         bool
	ArchivePath        string
	Err                error
}

// Summary is Process's return value: every impacted environment's
// outcome, in the order they were processed.
type Summary struct {
	Envs []EnvSummary
}

// Process runs §4.8 Stages A-D across cfg.Envs and returns a summary of
// every environment's outcome.
func Process(ctx context.Context, cfg Config) (Summary, error) {
	items := stageAItems(cfg)

	results := make(map[string][]RoutineResult, len(cfg.Envs))
	var mu func(func())
	if cfg.Pool != nil {
		mu = cfg.Pool.WithSharedState
	} else {
		mu = func(fn func()) { fn() }
	}

	contexts := make([]interface{}, len(items))
	for i, it := range items {
		contexts[i] = it
	}
	run := func(ctx context.Context, item interface{}) error {
		it := item.(routineItem)
		res, err := RunRoutine(ctx, cfg.Engine, it.env, it.unit, it.routine)
		if err != nil {
			// One routine's failure does not abort its environment or the
			// run: log it and record the routine as failed.
			if cfg.Log != nil {
				cfg.Log.Errorf("atg: stage A %s/%s/%s: %v", it.env.Name, it.unit, it.routine, err)
			}
			unit := strings.TrimSuffix(filepath.Base(it.unit), filepath.Ext(it.unit))
			res = RoutineResult{Unit: unit, Routine: it.routine}
		}
		mu(func() {
			results[it.env.Name] = append(results[it.env.Name], res)
		})
		return nil
	}
	if cfg.Pool != nil {
		if err := exec2.RunParallel(ctx, cfg.Pool, contexts, run); err != nil {
			return Summary{}, err
		}
	} else {
		for _, c := range contexts {
			if err := run(ctx, c); err != nil {
				return Summary{}, err
			}
		}
	}

	var summary Summary
	for _, env := range orderedEnvs(cfg) {
		// Stage B.
		envResults := results[env.Name]
		merged := MergeEnv(envResults)

		// Stage C: baseline with the ATG sub-stage disabled (the merged
		// script is the input, never regenerated by the Baseliner).
		scratchDir := filepath.Join(cfg.ScratchRoot, env.Name)
		blResult, err := baseline.Run(ctx, baseline.Config{
			Env:              env,
			Clicast:          cfg.Clicast,
			ScratchDir:       scratchDir,
			ATGScript:        merged,
			MaxIterations:    cfg.BaselineN,
			FixedPointCheck:  cfg.FixedPointCheck,
			StrictReturnCode: cfg.StrictReturnCode,
			Timeout:          cfg.Timeout,
			Lookup:           cfg.Lookup,
		})
		if err != nil {
			err = fmt.Errorf("atg: baseline %s: %w", env.Name, err)
			if cfg.Log != nil {
				cfg.Log.Errorf("%v", err)
			}
			summary.Envs = append(summary.Envs, EnvSummary{Name: env.Name, Err: err})
			continue
		}

		// Stage D.
		archivePath := atgdriver.Archive{Path: cfg.ArchiveDir}.FinalTstPath(env.Name)
		if err := SpliceArchive(archivePath, blResult.FinalScript); err != nil {
			err = fmt.Errorf("atg: splice archive for %s: %w", env.Name, err)
			if cfg.Log != nil {
				cfg.Log.Errorf("%v", err)
			}
			summary.Envs = append(summary.Envs, EnvSummary{Name: env.Name, Err: err})
			continue
		}

		es := EnvSummary{
			Name:               env.Name,
			BaselineIterations: blResult.Iterations,
			FixedPoint:         blResult.FixedPoint,
			ArchivePath:        archivePath,
		}
		for _, r := range envResults {
			if r.OK {
				es.RoutinesOK++
			} else {
				es.RoutinesFailed++
			}
		}
		summary.Envs = append(summary.Envs, es)
	}

	return summary, nil
}

// orderedEnvs returns cfg.Envs in depgraph.TopoOrder over the
// env->unit-source-path edges cfg.Routines implies, so Stage B/C/D and
// its status display process environments in a stable order across
// runs rather than cfg.Envs's caller-supplied order. An environment
// with no routine inventory entry is still handed to TopoOrder, with an
// empty file set; any environment TopoOrder does not return is appended
// afterwards in its original order.
func orderedEnvs(cfg Config) []project.Environment {
	envFiles := make(map[string]map[string]struct{}, len(cfg.Routines))
	byName := make(map[string]project.Environment, len(cfg.Envs))
	for _, env := range cfg.Envs {
		byName[env.Name] = env
		files := make(map[string]struct{})
		for unitPath := range cfg.Routines[env.Name] {
			files[unitPath] = struct{}{}
		}
		envFiles[env.Name] = files
	}

	var ordered []project.Environment
	placed := make(map[string]bool, len(cfg.Envs))
	for _, name := range depgraph.TopoOrder(envFiles) {
		if env, ok := byName[name]; ok && !placed[name] {
			ordered = append(ordered, env)
			placed[name] = true
		}
	}
	for _, env := range cfg.Envs {
		if !placed[env.Name] {
			ordered = append(ordered, env)
			placed[env.Name] = true
		}
	}
	return ordered
}

func stageAItems(cfg Config) []routineItem {
	var items []routineItem
	for _, env := range cfg.Envs {
		inv := cfg.Routines[env.Name]
		for _, routines := range inv {
			for _, r := range routines {
				items = append(items, routineItem{env: env, unit: r.UnitSourcePath, routine: r.Name})
			}
		}
	}
	return items
}
