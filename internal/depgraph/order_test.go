package depgraph

import (
	"reflect"
	"testing"
)

func TestTopoOrderIsDeterministicAndCoversEveryEnv(t *testing.T) {
	envFiles := map[string]map[string]struct{}{
		"envB": {"units/a.c": {}, "units/b.c": {}},
		"envA": {"units/a.c": {}},
		"envC": {"units/c.c": {}},
	}
	first := TopoOrder(envFiles)
	second := TopoOrder(envFiles)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("TopoOrder not deterministic: %v vs %v", first, second)
	}
	if len(first) != 3 {
		t.Fatalf("TopoOrder returned %d envs, want 3: %v", len(first), first)
	}
	seen := make(map[string]bool)
	for _, env := range first {
		seen[env] = true
	}
	for _, want := range []string{"envA", "envB", "envC"} {
		if !seen[want] {
			t.Errorf("TopoOrder missing %s in %v", want, first)
		}
	}
}

func TestTopoOrderEmpty(t *testing.T) {
	if got := TopoOrder(nil); len(got) != 0 {
		t.Errorf("TopoOrder(nil) = %v, want empty", got)
	}
}

func TestGraphTopoOrderMatchesEnvFiles(t *testing.T) {
	g := NewGraph()
	eg := g.ForEnv("env1")
	eg.addFile("units/a.c")
	order := g.TopoOrder()
	if len(order) != 1 || order[0] != "env1" {
		t.Errorf("Graph.TopoOrder() = %v, want [env1]", order)
	}
}
