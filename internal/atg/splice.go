package atg

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/renameio"
	"github.com/vector-atg/atgdriver/internal/tst"
)

// archivedATGName matches the NAME: of any previously-archived ATG test,
// for any subprogram, per §4.8 Stage D.
var archivedATGName = regexp.MustCompile(`^NAME:.*ATG`)

// SpliceArchive implements §4.8 Stage D: read the archive at path, drop
// every test matching archivedATGName, concatenate the remainder with
// the freshly baselined ATG script, and atomically replace the archive.
// If the archive does not yet exist, it is treated as empty.
func SpliceArchive(archivePath, baselined string) error {
	existing, err := os.ReadFile(archivePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		existing = nil
	}

	kept := tst.RemoveByName(string(existing), archivedATGName)
	merged := kept + baselined

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return err
	}
	return renameio.WriteFile(archivePath, []byte(merged), 0644)
}
