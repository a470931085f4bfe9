package depgraph

import (
	"strings"
	"testing"
)

const sampleManifest = `<manifest>
  <unit>
    <file>src/a.c</file>
    <file>src/b.c</file>
  </unit>
  <unit>
    <file>src/b.c</file>
    <file>../outside/c.c</file>
  </unit>
</manifest>`

func TestParseManifestRecordsBothDirections(t *testing.T) {
	g := NewGraph()
	e := g.ForEnv("E1")
	if err := ParseManifest(strings.NewReader(sampleManifest), "/repo", e); err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	envFiles := g.EnvFiles()
	want := map[string]struct{}{"src/a.c": {}, "src/b.c": {}}
	if len(envFiles["E1"]) != len(want) {
		t.Fatalf("EnvFiles[E1] = %v, want %v", envFiles["E1"], want)
	}
	for f := range want {
		if _, ok := envFiles["E1"][f]; !ok {
			t.Errorf("missing file %q in env E1's dependency set", f)
		}
	}

	if _, ok := g.FileEnvs("src/a.c")["E1"]; !ok {
		t.Errorf("FileEnvs(src/a.c) does not contain E1")
	}
	if !g.Consistent() {
		t.Errorf("graph not bidirectionally consistent")
	}
}

func TestParseManifestDropsFilesOutsideRepoRoot(t *testing.T) {
	g := NewGraph()
	e := g.ForEnv("E1")
	if err := ParseManifest(strings.NewReader(sampleManifest), "/repo", e); err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if _, ok := g.EnvFiles()["E1"]["../outside/c.c"]; ok {
		t.Errorf("file outside repo root was recorded")
	}
	if len(g.FileEnvs("c.c")) != 0 {
		t.Errorf("file outside repo root leaked into the graph under a relocated name")
	}
}

func TestParseManifestSingleUnitAndFileStillDecodeAsSlices(t *testing.T) {
	const single = `<manifest><unit><file>only.c</file></unit></manifest>`
	g := NewGraph()
	e := g.ForEnv("E1")
	if err := ParseManifest(strings.NewReader(single), "/repo", e); err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if _, ok := g.EnvFiles()["E1"]["only.c"]; !ok {
		t.Errorf("single <unit>/<file> manifest did not decode, force-list-shape violated")
	}
}

func TestMultipleEnvsShareAFile(t *testing.T) {
	g := NewGraph()
	const m1 = `<manifest><unit><file>shared.c</file></unit></manifest>`
	if err := ParseManifest(strings.NewReader(m1), "/repo", g.ForEnv("E1")); err != nil {
		t.Fatalf("ParseManifest E1: %v", err)
	}
	if err := ParseManifest(strings.NewReader(m1), "/repo", g.ForEnv("E2")); err != nil {
		t.Fatalf("ParseManifest E2: %v", err)
	}
	envs := g.FileEnvs("shared.c")
	if _, ok := envs["E1"]; !ok {
		t.Errorf("E1 missing from FileEnvs(shared.c)")
	}
	if _, ok := envs["E2"]; !ok {
		t.Errorf("E2 missing from FileEnvs(shared.c)")
	}
	if !g.Consistent() {
		t.Errorf("graph not bidirectionally consistent across multiple environments")
	}
}
