package impact

import "testing"

func set(items ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, i := range items {
		s[i] = struct{}{}
	}
	return s
}

// S1: unchanged_files = {a.c, b.c}, E1 depends on {a.c, b.c} => impacted = ∅.
func TestImpactedAllUnchanged(t *testing.T) {
	envFiles := EnvFiles{"E1": set("a.c", "b.c")}
	got := Impacted(set("a.c", "b.c"), envFiles)
	if len(got) != 0 {
		t.Errorf("Impacted = %v, want empty", got)
	}
}

// S2: unchanged_files = {a.c} => impacted = {E1}.
func TestImpactedOneFileChanged(t *testing.T) {
	envFiles := EnvFiles{"E1": set("a.c", "b.c")}
	got := Impacted(set("a.c"), envFiles)
	if _, ok := got["E1"]; !ok || len(got) != 1 {
		t.Errorf("Impacted = %v, want {E1}", got)
	}
}

func TestImpactedNoHookMeansEveryEnv(t *testing.T) {
	envFiles := EnvFiles{
		"E1": set("a.c"),
		"E2": set("b.c"),
	}
	got := Impacted(nil, envFiles)
	if len(got) != 2 {
		t.Errorf("Impacted with no hook = %v, want every env", got)
	}
}

func TestImpactedZeroFileEnvNeverImpacted(t *testing.T) {
	envFiles := EnvFiles{"E1": set()}
	got := Impacted(nil, envFiles)
	if len(got) != 0 {
		t.Errorf("Impacted = %v, want empty (zero-file env never impacted)", got)
	}
	got = Impacted(set("a.c"), envFiles)
	if len(got) != 0 {
		t.Errorf("Impacted = %v, want empty (zero-file env never impacted)", got)
	}
}

func TestImpactedDisjointDependencySet(t *testing.T) {
	envFiles := EnvFiles{"E1": set("c.c")}
	got := Impacted(set("a.c", "b.c"), envFiles)
	if _, ok := got["E1"]; !ok {
		t.Errorf("Impacted = %v, want {E1} (dependency entirely outside unchanged set)", got)
	}
}
