package atg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const existingArchive = `TEST.UNIT:foo
TEST.SUBPROGRAM:bar
TEST.NAME:bar_ATG_001
TEST.END
TEST.UNIT:foo
TEST.SUBPROGRAM:baz
TEST.NAME:baz_manual
TEST.END
`

func TestSpliceArchiveDropsArchivedATGTests(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "env1.tst")
	require.NoError(t, os.WriteFile(archivePath, []byte(existingArchive), 0644))

	baselined := "TEST.UNIT:foo\nTEST.SUBPROGRAM:bar\nTEST.NAME:bar_ATG_002\nTEST.END\n"
	require.NoError(t, SpliceArchive(archivePath, baselined))

	out, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	got := string(out)
	require.Contains(t, got, "baz_manual")
	require.NotContains(t, got, "bar_ATG_001")
	require.Contains(t, got, "bar_ATG_002")
}

func TestSpliceArchiveCreatesMissingArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "new_env.tst")

	baselined := "TEST.UNIT:foo\nTEST.SUBPROGRAM:bar\nTEST.NAME:bar_ATG_001\nTEST.END\n"
	require.NoError(t, SpliceArchive(archivePath, baselined))

	out, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	require.Equal(t, baselined, string(out))
}
