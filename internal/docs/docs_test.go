package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T, names ...string) *Library {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("doc"), 0o644))
	}
	return NewLibrary(dir)
}

func TestFindReturnsSortedMatches(t *testing.T) {
	lib := newTestLibrary(t,
		"4021-registration.pdf",
		"4021-insurance.pdf",
		"4022-registration.pdf",
		"notes.txt",
	)

	paths, err := lib.Find("4021")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "4021-insurance.pdf", filepath.Base(paths[0]))
	assert.Equal(t, "4021-registration.pdf", filepath.Base(paths[1]))
}

func TestFindNoDocuments(t *testing.T) {
	lib := newTestLibrary(t, "4021-registration.pdf")

	_, err := lib.Find("9999")
	assert.ErrorIs(t, err, ErrNoDocs)
}

func TestFindMissingDirectory(t *testing.T) {
	lib := NewLibrary(filepath.Join(t.TempDir(), "never-created"))

	_, err := lib.Find("4021")
	assert.ErrorIs(t, err, ErrNoDocs)
}

func TestFindRejectsEmptyUnit(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.Find("  ")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDocs)
}

func TestFindSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "4021-archive"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "4021-cab-card.pdf"), []byte("doc"), 0o644))

	paths, err := NewLibrary(dir).Find("4021")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "4021-cab-card.pdf", filepath.Base(paths[0]))
}

func TestListReturnsBaseNames(t *testing.T) {
	lib := newTestLibrary(t, "317-lease.pdf", "317-registration.pdf")

	names, err := lib.List("317")
	require.NoError(t, err)
	assert.Equal(t, []string{"317-lease.pdf", "317-registration.pdf"}, names)
}
