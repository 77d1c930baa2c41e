package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/index"
	"github.com/odvcencio/snap/pkg/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFsckCleanRepo(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "a.txt", "A")
	writeFile(t, r, "d/b.txt", "B")
	_, err := r.Commit("ada", "first")
	require.NoError(t, err)
	writeFile(t, r, "a.txt", "A2")
	_, err = r.Commit("ada", "second")
	require.NoError(t, err)

	report, err := r.Fsck()
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Empty(t, report.Dangling)
	assert.Equal(t, report.Objects, report.Reachable)
	// blobs A, A2, B; trees d, root1, root2; two commits
	assert.Equal(t, 8, report.Objects)
}

func TestFsckEmptyRepo(t *testing.T) {
	r := initRepo(t)
	report, err := r.Fsck()
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.Objects)
}

func TestFsckFailedCommitLeavesDanglingObjects(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "a.txt", "A")
	_, err := r.Commit("ada", "first")
	require.NoError(t, err)

	r.saveIndex = func(*index.Index) error {
		return fault.IO("write index", "index", os.ErrPermission)
	}
	writeFile(t, r, "a.txt", "A2")
	_, err = r.Commit("ada", "second")
	require.Error(t, err)

	report, err := r.Fsck()
	require.NoError(t, err)
	assert.True(t, report.OK(), "orphaned objects are harmless")
	assert.Len(t, report.Dangling, 3, "the new blob, root tree and commit")
	assert.Contains(t, report.Dangling, storedID(t, r, "A2"))
}

func TestFsckTombstonesKeepObjectsReachable(t *testing.T) {
	r := initRepo(t)
	path := writeFile(t, r, "staged.txt", "only staged")
	blob, err := r.Stage(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	_, err = r.Snapshot()
	require.NoError(t, err)
	idx, err := r.ReadIndex()
	require.NoError(t, err)
	e, _ := idx.Get("staged.txt")
	require.True(t, e.Deleted)

	report, err := r.Fsck()
	require.NoError(t, err)
	assert.NotContains(t, report.Dangling, blob)
}

func TestFsckDetectsMissingAndCorruptObjects(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "a.txt", "A")
	writeFile(t, r, "b.txt", "B")
	_, err := r.Commit("ada", "first")
	require.NoError(t, err)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	a, _ := idx.Get("a.txt")
	b, _ := idx.Get("b.txt")

	objects := filepath.Join(r.SnapDir, "objects")
	require.NoError(t, os.Remove(filepath.Join(objects, string(a.Hash))))
	require.NoError(t, os.WriteFile(filepath.Join(objects, string(b.Hash)), []byte("garbage"), 0o644))

	report, err := r.Fsck()
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, []object.Ref{{Kind: object.KindBlob, Hash: a.Hash}}, report.Missing)
	assert.Equal(t, []object.Hash{b.Hash}, report.Corrupt)
}

// storedID returns the id r's store gives content.
func storedID(t *testing.T, r *Repo, content string) object.Hash {
	t.Helper()
	_, h, err := r.Store.Encode([]byte(content))
	require.NoError(t, err)
	return h
}
