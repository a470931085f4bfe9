package baseline

import (
	"archive/tar"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/xerrors"
)

// compactScratch tars and gzips every intermediate file a Run left
// behind in scratchDir (bl.tst, merged.tst, stripped_unch.tst,
// expecteds.tst, intermediate.tst, and every stripped_N.tst) into a
// single scratch.tar.gz, then removes the originals. final.tst is left
// untouched since Stage D reads it back directly. The iteration
// sequence is only useful for post-mortem debugging once a run has
// finished, so it is retained compressed rather than left as a pile of
// loose text files per environment.
func compactScratch(scratchDir string) error {
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		return xerrors.Errorf("baseline: list scratch dir: %w", err)
	}

	archivePath := filepath.Join(scratchDir, "scratch.tar.gz")
	f, err := os.Create(archivePath)
	if err != nil {
		return xerrors.Errorf("baseline: create scratch archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	var toRemove []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == "final.tst" {
			continue
		}
		path := filepath.Join(scratchDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return xerrors.Errorf("baseline: read %s: %w", path, err)
		}
		if err := tw.WriteHeader(&tar.Header{Name: e.Name(), Size: int64(len(data)), Mode: 0644}); err != nil {
			return xerrors.Errorf("baseline: tar header for %s: %w", path, err)
		}
		if _, err := tw.Write(data); err != nil {
			return xerrors.Errorf("baseline: tar write %s: %w", path, err)
		}
		toRemove = append(toRemove, path)
	}
	if err := tw.Close(); err != nil {
		return xerrors.Errorf("baseline: close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return xerrors.Errorf("baseline: close gzip writer: %w", err)
	}

	for _, path := range toRemove {
		if err := os.Remove(path); err != nil {
			return xerrors.Errorf("baseline: remove %s: %w", path, err)
		}
	}
	return nil
}
