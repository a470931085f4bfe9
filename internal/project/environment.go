// Package project implements the Project Builder (§4.3): attaching a
// transient build script to the test project, invoking the tool's
// build, discovering environments co-located with their configuration
// files, and either building or validating each one.
//
// Grounded on cmd/autobuilder/autobuilder.go's stamped step pipeline
// (attach a script, run a command, detach/clean up) and
// internal/batch/batch.go's per-node build/validate split.
package project

import (
	"bytes"
	"os"
	"path/filepath"
)

// Environment is one test environment as defined in §3: identified by
// (Name, BuildLocation), holding a manifest, a coverage database, a
// configuration file, and a rebuild script.
type Environment struct {
	Name          string
	BuildLocation string
	EnvFile       string // the *.env rebuild script
	ConfigFile    string // the per-environment configuration file beside it
}

// ManifestPath returns the dependency manifest path for e.
func (e Environment) ManifestPath() string {
	return filepath.Join(e.BuildLocation, "manifest.xml")
}

// CoverageDBPath returns the coverage database path for e.
func (e Environment) CoverageDBPath() string {
	return filepath.Join(e.BuildLocation, "coverage.db")
}

// BuildLogPath returns the rebuild log path for e.
func (e Environment) BuildLogPath() string {
	return filepath.Join(e.BuildLocation, "build.log")
}

// Valid reports whether e meets §3's validity predicate: the build log
// records success, the manifest and coverage database both exist, and
// the most recent rebuild script run exited zero (rebuiltOK, passed in
// by the caller since only it knows the exit code of that run).
func (e Environment) Valid(rebuiltOK bool) bool {
	if !rebuiltOK {
		return false
	}
	if !fileExists(e.ManifestPath()) {
		return false
	}
	if !fileExists(e.CoverageDBPath()) {
		return false
	}
	return buildLogRecordsSuccess(e.BuildLogPath())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func buildLogRecordsSuccess(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return len(data) > 0 && !containsFailureMarker(data)
}

func containsFailureMarker(data []byte) bool {
	return bytes.Contains(data, []byte("BUILD FAILED"))
}
