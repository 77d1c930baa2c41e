package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageSingleFile(t *testing.T) {
	r := initRepo(t)
	p := writeFile(t, r, "docs/readme.md", "hello")

	h, err := r.Stage(p)
	require.NoError(t, err)
	assert.True(t, r.Store.Has(h))

	data, err := r.Store.GetBlob(h)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	e, ok := idx.Get("docs/readme.md")
	require.True(t, ok)
	assert.Equal(t, object.KindBlob, e.Kind)
	assert.Equal(t, h, e.Hash)
}

func TestStageDedupsSameContent(t *testing.T) {
	r := initRepo(t)
	a := writeFile(t, r, "a.txt", "same")
	b := writeFile(t, r, "b.txt", "same")

	hashes, err := r.Add([]string{a, b})
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	assert.Equal(t, hashes[0], hashes[1])

	objs, err := r.Store.List()
	require.NoError(t, err)
	assert.Len(t, objs, 1)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
}

func TestStageErrors(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "dir/x.txt", "x")

	_, err := r.Stage(filepath.Join(r.RootDir, "missing.txt"))
	assert.ErrorIs(t, err, fault.ErrNotFound)

	_, err = r.Stage(filepath.Join(r.RootDir, "dir"))
	assert.ErrorIs(t, err, fault.ErrInvalidInput)

	_, err = r.Stage(filepath.Join(r.SnapDir, "HEAD"))
	assert.ErrorIs(t, err, fault.ErrInvalidInput)

	odd := writeFile(t, r, "line\nbreak.txt", "x")
	_, err = r.Stage(odd)
	assert.ErrorIs(t, err, fault.ErrInvalidInput)

	outside := filepath.Join(t.TempDir(), "elsewhere.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	_, err = r.Stage(outside)
	assert.ErrorIs(t, err, fault.ErrInvalidInput)
}

func TestStageThenSnapshotAgree(t *testing.T) {
	r := initRepo(t)
	p := writeFile(t, r, "a.txt", "A")
	staged, err := r.Stage(p)
	require.NoError(t, err)

	_, err = r.Snapshot()
	require.NoError(t, err)
	idx, err := r.ReadIndex()
	require.NoError(t, err)
	e, _ := idx.Get("a.txt")
	assert.Equal(t, staged, e.Hash)
	assert.Equal(t, 1, idx.Len())
}

// file1.txt="A", dir1/file2.txt="B"; then dir1 is removed.
func TestSnapshotEndToEnd(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "file1.txt", "A")
	writeFile(t, r, "dir1/file2.txt", "B")

	tree1, err := r.Snapshot()
	require.NoError(t, err)

	objs1, err := r.Store.List()
	require.NoError(t, err)
	assert.Len(t, objs1, 4)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())
	for _, e := range idx.Entries() {
		assert.False(t, e.Deleted, e.Path)
	}

	require.NoError(t, os.RemoveAll(filepath.Join(r.RootDir, "dir1")))
	tree2, err := r.Snapshot()
	require.NoError(t, err)
	assert.NotEqual(t, tree1, tree2)

	for _, h := range objs1 {
		assert.True(t, r.Store.Has(h))
	}
	root, err := r.Store.GetTree(tree2)
	require.NoError(t, err)
	require.Len(t, root.Entries, 1)
	assert.Equal(t, "file1.txt", root.Entries[0].Name)

	idx, err = r.ReadIndex()
	require.NoError(t, err)
	for _, p := range []string{"dir1", "dir1/file2.txt"} {
		e, ok := idx.Get(p)
		require.True(t, ok, p)
		assert.True(t, e.Deleted, p)
	}

	raw, err := os.ReadFile(filepath.Join(r.SnapDir, "index"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), " dir1/file2.txt deleted\n")

	n, err := r.PurgeIndex()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	idx, err = r.ReadIndex()
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
}
