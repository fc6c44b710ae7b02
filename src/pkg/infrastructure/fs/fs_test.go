package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "SHA256SUMS.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("abc  file.zip\n"), PermDirShared, PermFileShared))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc  file.zip\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files should be left behind")
}

func TestResetDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stale"), PermDirShared))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.zip"), []byte("x"), PermFileShared))

	require.NoError(t, ResetDir(dir, PermDirShared))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWithTempDirRemovesOnError(t *testing.T) {
	var seen string
	err := WithTempDir("iconset-*", func(dir string) error {
		seen = dir
		return os.ErrInvalid
	})
	assert.ErrorIs(t, err, os.ErrInvalid)
	assert.False(t, Exists(seen))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/proj", "Cargo.toml"), Resolve("/proj", "Cargo.toml"))
	assert.Equal(t, "/abs/icon.png", Resolve("/proj", "/abs/icon.png"))
	assert.Equal(t, "", Resolve("/proj", ""))
}

func TestAbs(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	got, err := Abs("~/dist")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "dist"), got)

	got, err = Abs("dist")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "dist", filepath.Base(got))
}
