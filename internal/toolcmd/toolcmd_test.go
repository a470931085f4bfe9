package toolcmd

import (
	"os"
	"reflect"
	"testing"
)

func TestResolveClicast(t *testing.T) {
	old, had := os.LookupEnv("VECTORCAST_DIR")
	defer func() {
		if had {
			os.Setenv("VECTORCAST_DIR", old)
		} else {
			os.Unsetenv("VECTORCAST_DIR")
		}
	}()

	os.Setenv("VECTORCAST_DIR", "/opt/vcast")
	if got, want := ResolveClicast(), "/opt/vcast/clicast"; got != want {
		t.Errorf("ResolveClicast() = %q, want %q", got, want)
	}
	if got, want := ResolvePyedg(), "/opt/vcast/pyedg"; got != want {
		t.Errorf("ResolvePyedg() = %q, want %q", got, want)
	}
	if got, want := ResolveEngineScript(), "/opt/vcast/python/vector/apps/atg_utils/run_atg.py"; got != want {
		t.Errorf("ResolveEngineScript() = %q, want %q", got, want)
	}
}

func TestCommandLines(t *testing.T) {
	const clicast = "/opt/vcast/clicast"
	cases := []struct {
		name string
		got  []string
		want []string
	}{
		{"BuildProject", BuildProject(clicast, "proj.pj"), []string{clicast, "-p", "proj.pj", "tools", "project", "rebuild_environments"}},
		{"Rebuild", Rebuild(clicast, "myenv"), []string{clicast, "-l", "c", "ENVironment", "script", "run", "myenv.env"}},
		{"Baseline", Baseline(clicast, "myenv", "bl.tst"), []string{clicast, "-e", "myenv", "tools", "auto_baseline_test", "bl.tst"}},
		{"ATG", ATG(clicast, "myenv", "atg.tst"), []string{clicast, "-e", "myenv", "tools", "auto_atg_test", "atg.tst"}},
		{"Import", Import(clicast, "in.tst"), []string{clicast, "test", "script", "run", "in.tst"}},
		{"Execute", Execute(clicast), []string{clicast, "execute", "batch", "--update_coverage_data"}},
		{"ActualsToExpected", ActualsToExpected(clicast), []string{clicast, "TESt", "ACtuals_to_expected"}},
		{"Extract", Extract(clicast, "out.tst"), []string{clicast, "test", "script", "create", "out.tst"}},
	}
	for _, c := range cases {
		if !reflect.DeepEqual(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}
