package atg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vector-atg/atgdriver/internal/project"
	"github.com/vector-atg/atgdriver/internal/runner"
)

// RoutineResult is one (unit, routine)'s Stage A outcome for a single
// environment.
type RoutineResult struct {
	Unit    string
	Routine string
	OK      bool
	Script  string // contents of the per-routine .tst file, if OK
}

// EngineConfig configures one Stage A invocation.
type EngineConfig struct {
	Pyedg            string
	EngineScript     string
	Timeout          time.Duration
	StrictReturnCode bool
	WorkDir          string // scratch location for per-routine artefacts; env.BuildLocation if empty
}

// RunRoutine runs the ATG engine against one (unit, routine) inside env,
// implementing §4.8 Stage A. A non-OK result (rc_failure under
// strict-return-code, or a missing output script) is not an error —
// the caller discards it and continues with the rest of the fan-out,
// per §5's "a single routine's ATG timing out or failing does not abort
// the env".
func RunRoutine(ctx context.Context, cfg EngineConfig, env project.Environment, unitSourcePath, routine string) (RoutineResult, error) {
	unit := strings.TrimSuffix(filepath.Base(unitSourcePath), filepath.Ext(unitSourcePath))
	res := RoutineResult{Unit: unit, Routine: routine}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = env.BuildLocation
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return RoutineResult{}, fmt.Errorf("atg: create work dir %s: %w", workDir, err)
	}

	prefix := filepath.Join(workDir, fmt.Sprintf("%s_%s_%s", env.Name, unit, routine))
	logPath := prefix + ".log"
	tstPath := prefix + ".tst"

	edgFlags, err := project.CompileFlags(env)
	if err != nil {
		return RoutineResult{}, fmt.Errorf("atg: read compile flags for %s: %w", env.Name, err)
	}
	tuPath := unitToTUPath(env.BuildLocation, unitSourcePath)

	argv := engineArgv(cfg.Pyedg, strings.Fields(edgFlags), tuPath)
	env2 := engineEnv(tstPath, logPath, routine, cfg.EngineScript)

	runRes, err := runner.Run(ctx, argv, runner.Options{
		Cwd:       env.BuildLocation,
		Env:       env2,
		Timeout:   cfg.Timeout,
		LogPrefix: prefix + "_pyedg",
	})
	if err != nil {
		return RoutineResult{}, fmt.Errorf("atg: invoke engine for %s/%s/%s: %w", env.Name, unit, routine, err)
	}

	rcFailure := cfg.StrictReturnCode && runRes.ExitCode != 0
	if rcFailure {
		return res, nil
	}
	data, err := os.ReadFile(tstPath)
	if err != nil {
		return res, nil // no output script: discarded, not an error
	}
	res.OK = true
	res.Script = string(data)
	return res, nil
}
