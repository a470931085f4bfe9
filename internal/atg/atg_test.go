package atg

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vector-atg/atgdriver/internal/depgraph"
	"github.com/vector-atg/atgdriver/internal/project"
	"github.com/vector-atg/atgdriver/internal/tst"
)

type noOutcomes struct{}

func (noOutcomes) Outcome(string) (tst.Outcome, bool) { return tst.Outcome{}, false }

// writeFakeClicast mirrors internal/baseline's helper: it copies fixture
// to its last argument for the baseline-generator and extract commands,
// and is a no-op for every other command line.
func writeFakeClicast(t *testing.T, dir, fixture string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-clicast.sh")
	script := "#!/bin/sh\n" +
		"eval \"last=\\$$#\"\n" +
		"case \"$*\" in\n" +
		"  *\"auto_baseline_test\"*|*\"script create\"*)\n" +
		"    cp \"" + fixture + "\" \"$last\"\n" +
		"    ;;\n" +
		"esac\n" +
		"exit 0\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestProcessRunsAllFourStages(t *testing.T) {
	base := t.TempDir()

	buildLocation := filepath.Join(base, "build")
	require.NoError(t, os.MkdirAll(buildLocation, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(buildLocation, "myenv.env"), []byte("-- rebuild --\n"), 0644))
	cfgFile := filepath.Join(buildLocation, "myenv.cfg")
	require.NoError(t, os.WriteFile(cfgFile, []byte("TU_COMPILE_FLAGS=-I/inc\n"), 0644))

	env := project.Environment{
		Name:          "myenv",
		BuildLocation: buildLocation,
		EnvFile:       filepath.Join(buildLocation, "myenv.env"),
		ConfigFile:    cfgFile,
	}

	// Baseliner's own generator/extractor: always returns this fixture,
	// so the fixed-point check passes immediately regardless of what
	// Stage A/B produced.
	blFixture := filepath.Join(base, "bl_fixture.tst")
	require.NoError(t, os.WriteFile(blFixture, []byte(
		"TEST.UNIT:foo\nTEST.SUBPROGRAM:my_routine\nTEST.NAME:my_routine_ATG_001\nTEST.END:\n"), 0644))
	clicast := writeFakeClicast(t, base, blFixture)

	pyedg := filepath.Join(base, "pyedg")
	require.NoError(t, os.WriteFile(pyedg, []byte(fakePyedgScript), 0755))

	archiveDir := filepath.Join(base, "archive")
	require.NoError(t, os.MkdirAll(filepath.Join(archiveDir, "myenv"), 0755))
	// Pre-existing archive with a stale ATG test that Stage D must drop.
	require.NoError(t, os.WriteFile(filepath.Join(archiveDir, "myenv", "final.tst"), []byte(
		"TEST.UNIT:foo\nTEST.SUBPROGRAM:my_routine\nTEST.NAME:my_routine_ATG_stale\nTEST.END:\n"+
			"TEST.UNIT:foo\nTEST.SUBPROGRAM:other\nTEST.NAME:other_manual\nTEST.END:\n"), 0644))

	cfg := Config{
		Envs: []project.Environment{env},
		Routines: map[string]depgraph.RoutineInventory{
			"myenv": {
				"/src/units/foo.c": []depgraph.Routine{
					{UnitSourcePath: "/src/units/foo.c", Name: "my_routine"},
				},
			},
		},
		Engine:          EngineConfig{Pyedg: pyedg, Timeout: 5 * time.Second},
		Clicast:         clicast,
		BaselineN:       1,
		FixedPointCheck: true,
		Timeout:         5 * time.Second,
		Lookup:          noOutcomes{},
		ArchiveDir:      archiveDir,
		ScratchRoot:     filepath.Join(base, "scratch"),
	}

	summary, err := Process(context.Background(), cfg)
	require.NoError(t, err)
	archivePath := filepath.Join(archiveDir, "myenv", "final.tst")
	require.Len(t, summary.Envs, 1)
	es := summary.Envs[0]
	require.Equal(t, "myenv", es.Name)
	require.Equal(t, archivePath, es.ArchivePath)
	require.Equal(t, 1, es.RoutinesOK)
	require.Equal(t, 0, es.RoutinesFailed)
	require.True(t, es.FixedPoint)
	require.GreaterOrEqual(t, es.BaselineIterations, 1)

	out, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	got := string(out)
	require.Contains(t, got, "other_manual")
	require.NotContains(t, got, "my_routine_ATG_stale")
}

func TestProcessContinuesPastAFailingEnvironment(t *testing.T) {
	base := t.TempDir()

	blFixture := filepath.Join(base, "bl_fixture.tst")
	require.NoError(t, os.WriteFile(blFixture, []byte(
		"TEST.UNIT:foo\nTEST.SUBPROGRAM:my_routine\nTEST.NAME:my_routine_ATG_001\nTEST.END:\n"), 0644))
	clicast := writeFakeClicast(t, base, blFixture)

	pyedg := filepath.Join(base, "pyedg")
	require.NoError(t, os.WriteFile(pyedg, []byte(fakePyedgScript), 0755))

	archiveDir := filepath.Join(base, "archive")
	scratchRoot := filepath.Join(base, "scratch")
	require.NoError(t, os.MkdirAll(scratchRoot, 0755))
	// badenv's scratch directory is pre-occupied by a plain file, so
	// baseline.Run's os.MkdirAll(cfg.ScratchDir, ...) fails for it.
	require.NoError(t, os.WriteFile(filepath.Join(scratchRoot, "badenv"), []byte("x"), 0644))

	goodEnv := project.Environment{Name: "goodenv", BuildLocation: base}
	badEnv := project.Environment{Name: "badenv", BuildLocation: base}

	cfg := Config{
		Envs: []project.Environment{badEnv, goodEnv},
		Routines: map[string]depgraph.RoutineInventory{
			"goodenv": {
				"/src/units/foo.c": []depgraph.Routine{
					{UnitSourcePath: "/src/units/foo.c", Name: "my_routine"},
				},
			},
		},
		Engine:          EngineConfig{Pyedg: pyedg, Timeout: 5 * time.Second},
		Clicast:         clicast,
		BaselineN:       1,
		FixedPointCheck: true,
		Timeout:         5 * time.Second,
		Lookup:          noOutcomes{},
		ArchiveDir:      archiveDir,
		ScratchRoot:     scratchRoot,
	}

	summary, err := Process(context.Background(), cfg)
	require.NoError(t, err, "a single failing environment must not abort Process")
	require.Len(t, summary.Envs, 2)

	byName := make(map[string]EnvSummary, len(summary.Envs))
	for _, es := range summary.Envs {
		byName[es.Name] = es
	}

	require.Error(t, byName["badenv"].Err)
	require.Empty(t, byName["badenv"].ArchivePath)

	require.NoError(t, byName["goodenv"].Err)
	require.True(t, byName["goodenv"].FixedPoint)
	_, err = os.ReadFile(byName["goodenv"].ArchivePath)
	require.NoError(t, err)
}

func TestOrderedEnvsIncludesEveryEnvExactlyOnce(t *testing.T) {
	envs := []project.Environment{{Name: "envB"}, {Name: "envA"}, {Name: "envC"}}
	cfg := Config{
		Envs: envs,
		Routines: map[string]depgraph.RoutineInventory{
			"envA": {"units/a.c": nil},
			"envB": {"units/a.c": nil, "units/b.c": nil},
			// envC has no routine inventory entry at all.
		},
	}
	ordered := orderedEnvs(cfg)
	require.Len(t, ordered, 3)
	seen := make(map[string]bool)
	for _, env := range ordered {
		seen[env.Name] = true
	}
	require.True(t, seen["envA"])
	require.True(t, seen["envB"])
	require.True(t, seen["envC"])
}
