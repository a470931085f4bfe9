// Package toolcmd names the command lines used to drive the external
// test tool, per §4.9. Every command is run with the environment
// directory as its working directory, and every argv is prefixed with
// the resolved path to the tool's clicast binary, mirroring
// original_source/atg_execution/baseline_for_atg.py's run_clicast.
package toolcmd

import (
	"os"
	"path/filepath"
)

// ResolveClicast returns the path to the external tool's clicast binary,
// resolved from the VECTORCAST_DIR environment variable the same way
// original_source/atg_execution/build_manage.py resolves it.
func ResolveClicast() string {
	return filepath.Join(os.Getenv("VECTORCAST_DIR"), "clicast")
}

// ResolvePyedg returns the path to the external ATG engine's pyedg
// binary, resolved the same way original_source/atg_execution/
// process_project.py builds its "$VECTORCAST_DIR/pyedg ..." command.
func ResolvePyedg() string {
	return filepath.Join(os.Getenv("VECTORCAST_DIR"), "pyedg")
}

// ResolveEngineScript returns the path to the ATG engine driver script
// pyedg is pointed at, resolved the same way process_project.py
// resolves "$VECTORCAST_DIR/python/vector/apps/atg_utils/run_atg.py".
func ResolveEngineScript() string {
	return filepath.Join(os.Getenv("VECTORCAST_DIR"), "python", "vector", "apps", "atg_utils", "run_atg.py")
}

// BuildProject returns the argv the Project Builder invokes to build
// every environment under project (the test project's container file),
// before --compiler_level/--build_trigger are appended by the caller.
func BuildProject(clicast, project string) []string {
	return []string{clicast, "-p", project, "tools", "project", "rebuild_environments"}
}

// Rebuild returns the argv for rebuilding env from scratch via its
// rebuild script.
func Rebuild(clicast, env string) []string {
	return []string{clicast, "-l", "c", "ENVironment", "script", "run", env + ".env"}
}

// Baseline returns the argv for the tool's built-in baseline-test
// generator, writing its output to out.
func Baseline(clicast, env, out string) []string {
	return []string{clicast, "-e", env, "tools", "auto_baseline_test", out}
}

// ATG returns the argv for the external automatic-test-generation
// engine, writing its output to out.
func ATG(clicast, env, out string) []string {
	return []string{clicast, "-e", env, "tools", "auto_atg_test", out}
}

// Import returns the argv for importing a test script at path into the
// live environment.
func Import(clicast, path string) []string {
	return []string{clicast, "test", "script", "run", path}
}

// Execute returns the argv for executing the currently imported test
// suite and updating the coverage database.
func Execute(clicast string) []string {
	return []string{clicast, "execute", "batch", "--update_coverage_data"}
}

// ActualsToExpected returns the argv for converting the last execution's
// actual values into expected values in place.
func ActualsToExpected(clicast string) []string {
	return []string{clicast, "TESt", "ACtuals_to_expected"}
}

// Extract returns the argv for extracting the environment's current test
// state as a script at out.
func Extract(clicast, out string) []string {
	return []string{clicast, "test", "script", "create", out}
}
