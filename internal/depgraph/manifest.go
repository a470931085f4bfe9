// Package depgraph implements the Dependency Discoverer (§4.4): for
// each built environment, parse its dependency manifest (XML) and query
// its coverage database (SQLite) to populate the File Dependency Graph
// and the Routine Inventory.
//
// Grounded on distri's declarative-file readers (pb/readbuild.go,
// pb/readmeta.go: "parse one file into a typed struct, fail loud on a
// malformed document") retargeted at XML, which no repo in the pack
// wraps in a third-party library — encoding/xml is used directly even
// in the larger reference repos (Grafana, Sourcegraph manifests), so
// this stays on the standard library by the same reasoning.
package depgraph

import (
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// manifest is the on-disk shape of a dependency manifest: a set of
// units, each listing the files it depends on. Both Units and Files are
// always decoded as slices (never collapsed to a bare struct) because
// the Go fields are declared as []unit/[]string — "force list shape"
// per SPEC_FULL.md's data-model clarification.
type manifest struct {
	XMLName xml.Name `xml:"manifest"`
	Units   []unit   `xml:"unit"`
}

type unit struct {
	Files []string `xml:"file"`
}

// ParseManifest decodes a dependency manifest document and records both
// directions of the File Dependency Graph into e, keeping only paths
// that fall under repoRoot. Paths are recorded relative to repoRoot.
func ParseManifest(r io.Reader, repoRoot string, e *EnvGraph) error {
	var m manifest
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("depgraph: decode manifest: %w", err)
	}
	for _, u := range m.Units {
		for _, f := range u.Files {
			rel, ok := relocate(repoRoot, f)
			if !ok {
				continue
			}
			e.addFile(rel)
		}
	}
	return nil
}

// relocate returns f expressed relative to repoRoot, and whether f lies
// under repoRoot at all (per §3: "only paths rooted under the
// repository appear").
func relocate(repoRoot, f string) (string, bool) {
	abs := f
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(repoRoot, f)
	}
	rel, err := filepath.Rel(repoRoot, abs)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
