// Package atg implements the Project Processor (§4.8): fans the ATG
// engine out over every (environment, unit, routine) triple, merges the
// per-routine scripts back into one script per environment, baselines
// each merged script, and splices the result into that environment's
// archived test file.
//
// Grounded on internal/batch/batch.go's scheduler, generalised from
// per-package work items to per-(env,unit,routine) and per-env fan-out,
// and on original_source/atg_execution/process_project.py for the
// Stage A-D sequencing.
package atg

import (
	"os"
	"path/filepath"
	"strings"
)

// unitToTUPath converts a unit's source path into the translation-unit
// file name the environment build directory holds for it: the unit's
// basename with ".tu" inserted before the suffix, per §4.8 Stage A.
func unitToTUPath(envBuildDir, unitSourcePath string) string {
	base := filepath.Base(unitSourcePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(envBuildDir, stem+".tu"+ext)
}

// engineArgv returns the argv for invoking the ATG engine binary
// against one translation unit, mirroring process_project.py's
// "$VECTORCAST_DIR/pyedg {edg_flags} {tu}" command line.
func engineArgv(pyedg string, edgFlags []string, tuPath string) []string {
	argv := make([]string, 0, len(edgFlags)+2)
	argv = append(argv, pyedg)
	argv = append(argv, edgFlags...)
	argv = append(argv, tuPath)
	return argv
}

// engineEnv returns the child environment for one engine invocation:
// the process's own environment plus the four variables §4.8 Stage A
// says parametrise the output script path, log path, subprogram filter
// and engine script.
func engineEnv(outputScript, logPath, subprogramFilter, engineScript string) []string {
	env := os.Environ()
	env = append(env,
		"ATG_OUTPUT_SCRIPT="+outputScript,
		"ATG_LOG_PATH="+logPath,
		"ATG_SUBPROGRAM_FILTER="+subprogramFilter,
		"ATG_ENGINE_SCRIPT="+engineScript,
	)
	return env
}
