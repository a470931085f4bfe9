// Package runner implements the Process Runner: it launches external
// commands with a timeout, captures stdout/stderr/exit code, and
// optionally writes a per-call log pair to disk.
//
// Grounded on the exec.Command/CommandContext invocation pattern in
// distri's internal/build (environment rebuild scripts) and
// cmd/distri/batch.go's per-package log-file capture, generalised to an
// explicit timeout and the .out/.err trailer format this driver needs.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/xerrors"
)

// Result is the outcome of a Run call.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Elapsed  time.Duration
}

// Options configures a single Run call.
type Options struct {
	// Cwd is the working directory for the child process.
	Cwd string
	// Env, if non-nil, replaces the child's environment entirely
	// (following os/exec.Cmd.Env semantics); pass nil to inherit the
	// current process's environment.
	Env []string
	// Timeout, if non-zero, bounds how long the child may run before
	// being killed.
	Timeout time.Duration
	// LogPrefix, if non-empty, causes Run to write LogPrefix+".out" and
	// LogPrefix+".err" next to the command's own captured output.
	LogPrefix string
}

// Run launches cmd (argv[0] plus arguments) and waits for it to finish
// or for Options.Timeout to elapse. A non-zero exit code is not an
// error — Run only returns an error when the child could not be
// spawned at all; callers interpret Result.ExitCode themselves.
func Run(ctx context.Context, argv []string, opts Options) (Result, error) {
	if len(argv) == 0 {
		return Result{}, xerrors.New("runner: empty argv")
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = opts.Cwd
	if opts.Env != nil {
		cmd.Env = opts.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := Result{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: elapsed,
	}

	switch {
	case runErr == nil:
		res.ExitCode = 0
	case isTimeout(runCtx, runErr):
		// The child was killed because it exceeded its timeout; whatever
		// output accumulated is still returned, with a non-zero exit
		// code, per the Process Runner's timeout contract.
		res.ExitCode = -1
	default:
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn error (e.g. binary not found): this is the one case
			// Run itself fails.
			return res, xerrors.Errorf("spawn %v: %w", argv, runErr)
		}
	}

	if opts.LogPrefix != "" {
		if err := writeLogPair(opts.LogPrefix, res); err != nil {
			return res, xerrors.Errorf("writing log pair for %v: %w", argv, err)
		}
	}

	return res, nil
}

func isTimeout(ctx context.Context, err error) bool {
	return ctx.Err() == context.DeadlineExceeded
}

func writeLogPair(prefix string, res Result) error {
	if err := os.MkdirAll(filepath.Dir(prefix), 0755); err != nil {
		return err
	}
	outPath := prefix + ".out"
	errPath := prefix + ".err"

	out := res.Stdout
	out += fmt.Sprintf("# elapsed: %0.3fs\n", res.Elapsed.Seconds())
	out += fmt.Sprintf("# exit_code: %d\n", res.ExitCode)

	if err := os.WriteFile(outPath, []byte(out), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(errPath, []byte(res.Stderr), 0644); err != nil {
		return err
	}
	return nil
}
