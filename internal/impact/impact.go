// Package impact implements the Impact Selector (§4.5): given the set of
// files an SCM hook reports as unchanged and the env→files dependency
// map, decide which environments the Project Processor must actually
// run ATG against.
//
// Grounded on distri's internal/batch.canBuild-style subset predicates
// over dependency sets (internal/batch/batch.go): impact, like
// buildability there, is a pure set-membership question with no I/O.
package impact

// EnvFiles maps an environment name to the set of repository-relative
// file paths it depends on (envs_to_files, §3's File Dependency Graph).
type EnvFiles map[string]map[string]struct{}

// Impacted returns the set of environment names in envFiles whose
// dependency set is not a subset of unchangedFiles — i.e. at least one
// of their dependencies changed. When unchangedFiles is nil (no SCM
// hook available), every environment is impacted, per §4.5 "When the
// SCM hook is absent, every env is impacted."
//
// An environment with an empty dependency set is never impacted: its
// (empty) set is trivially a subset of any unchangedFiles, including the
// nil/absent-hook case — see DESIGN.md's open-question decision on
// zero-file environments.
func Impacted(unchangedFiles map[string]struct{}, envFiles EnvFiles) map[string]struct{} {
	impacted := make(map[string]struct{})
	for env, files := range envFiles {
		if len(files) == 0 {
			continue
		}
		if unchangedFiles == nil || !isSubset(files, unchangedFiles) {
			impacted[env] = struct{}{}
		}
	}
	return impacted
}

func isSubset(a, b map[string]struct{}) bool {
	for f := range a {
		if _, ok := b[f]; !ok {
			return false
		}
	}
	return true
}
