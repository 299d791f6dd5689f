// SPDX-License-Identifier: Apache-2.0

package lvc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHash(t *testing.T, s string) gitinterface.Hash {
	t.Helper()
	padded := s + "0000000000000000000000000000000000000"
	h, err := gitinterface.NewHash(padded[:40])
	require.Nil(t, err)
	return h
}

func TestReadMissingFileIsNoLocalCopy(t *testing.T) {
	root := t.TempDir()
	commitID, exists, err := Read(root, "acme", "widgets")
	require.Nil(t, err)
	assert.False(t, exists)
	assert.True(t, commitID.IsZero())
}

func TestWriteAtomicThenRead(t *testing.T) {
	root := t.TempDir()
	commitID := testHash(t, "c1")

	require.Nil(t, WriteAtomic(root, "acme", "widgets", commitID))

	got, exists, err := Read(root, "acme", "widgets")
	require.Nil(t, err)
	assert.True(t, exists)
	assert.Equal(t, commitID.String(), got.String())
}

func TestWriteAtomicOverwritesPreviousValue(t *testing.T) {
	root := t.TempDir()
	c1, c2 := testHash(t, "c1"), testHash(t, "c2")

	require.Nil(t, WriteAtomic(root, "acme", "widgets", c1))
	require.Nil(t, WriteAtomic(root, "acme", "widgets", c2))

	got, _, err := Read(root, "acme", "widgets")
	require.Nil(t, err)
	assert.Equal(t, c2.String(), got.String())
}

func TestWriteAtomicLeavesNoTempFilesBehind(t *testing.T) {
	root := t.TempDir()
	require.Nil(t, WriteAtomic(root, "acme", "widgets", testHash(t, "c1")))

	entries, err := os.ReadDir(Dir(root, "acme", "widgets"))
	require.Nil(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "last_validated_commit", entries[0].Name())
}

func TestPathConvention(t *testing.T) {
	assert.Equal(t, filepath.Join("/conf", "_acme_widgets"), Dir("/conf", "acme", "widgets"))
	assert.Equal(t, filepath.Join("/conf", "_acme_widgets", "last_validated_commit"), Path("/conf", "acme", "widgets"))
}

func TestReadTrimsTrailingNewline(t *testing.T) {
	root := t.TempDir()
	dir := Dir(root, "acme", "widgets")
	require.Nil(t, os.MkdirAll(dir, 0o755))
	commitID := testHash(t, "c1")
	require.Nil(t, os.WriteFile(Path(root, "acme", "widgets"), []byte(commitID.String()+"\n"), 0o644))

	got, exists, err := Read(root, "acme", "widgets")
	require.Nil(t, err)
	assert.True(t, exists)
	assert.Equal(t, commitID.String(), got.String())
}
