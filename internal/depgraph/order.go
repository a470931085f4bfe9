package depgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// TopoOrder returns the keys of envFiles (environment names) in a
// deterministic order, derived from a directed graph with one edge
// env -> file for every file that environment depends on. The graph is
// bipartite with edges running only one way, so it can never contain a
// cycle; the topological sort exists here to give the Project
// Processor's per-env Stage B/C/D loop (and its status display) a
// stable processing order across runs, rather than Go's unordered map
// iteration.
func TopoOrder(envFiles map[string]map[string]struct{}) []string {
	envs := make([]string, 0, len(envFiles))
	for env := range envFiles {
		envs = append(envs, env)
	}
	sort.Strings(envs)

	dg := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(envs))
	var nextID int64
	nodeFor := func(name string) int64 {
		if id, ok := ids[name]; ok {
			return id
		}
		id := nextID
		nextID++
		ids[name] = id
		dg.AddNode(simple.Node(id))
		return id
	}

	for _, env := range envs {
		envID := nodeFor(env)
		files := make([]string, 0, len(envFiles[env]))
		for f := range envFiles[env] {
			files = append(files, f)
		}
		sort.Strings(files)
		for _, f := range files {
			fileID := nodeFor(f)
			dg.SetEdge(simple.Edge{F: simple.Node(envID), T: simple.Node(fileID)})
		}
	}

	sorted, err := topo.Sort(dg)
	if err != nil {
		// Unreachable for a bipartite env->file graph; fall back to the
		// lexical seed order rather than error out an ordering helper.
		return envs
	}

	envIDs := make(map[int64]string, len(envs))
	for _, env := range envs {
		envIDs[ids[env]] = env
	}
	order := make([]string, 0, len(envs))
	for _, n := range sorted {
		if env, ok := envIDs[n.ID()]; ok {
			order = append(order, env)
		}
	}
	return order
}

// TopoOrder returns g's environments ordered by TopoOrder over its
// current env->file snapshot.
func (g *Graph) TopoOrder() []string {
	return TopoOrder(g.EnvFiles())
}
