package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/index"
	"github.com/odvcencio/snap/pkg/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestCommitChain(t *testing.T) {
	r := initRepo(t, WithClock(fixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))))
	writeFile(t, r, "file1.txt", "A")

	head, err := r.ReadHead()
	require.NoError(t, err)
	require.Empty(t, head, "new repository has no commits")

	c1, err := r.Commit("ada", "first")
	require.NoError(t, err)
	head, err = r.ReadHead()
	require.NoError(t, err)
	assert.Equal(t, c1, head)

	first, err := r.Store.GetCommit(c1)
	require.NoError(t, err)
	assert.Empty(t, first.Parent)
	assert.Equal(t, "ada", first.Author)
	assert.Equal(t, "first", first.Message)
	assert.Equal(t, "2026-10-19T09:00:01Z", first.Timestamp)

	writeFile(t, r, "file1.txt", "A2")
	c2, err := r.Commit("ada", "second")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)

	second, err := r.Store.GetCommit(c2)
	require.NoError(t, err)
	assert.Equal(t, c1, second.Parent)
	assert.NotEqual(t, first.TreeHash, second.TreeHash)

	head, err = r.ReadHead()
	require.NoError(t, err)
	assert.Equal(t, c2, head)

	raw, err := os.ReadFile(filepath.Join(r.SnapDir, "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, string(c2)+"\n", string(raw))
}

func TestCommitTreeMatchesSnapshot(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "file1.txt", "A")
	writeFile(t, r, "dir1/file2.txt", "B")

	tree, err := r.Snapshot()
	require.NoError(t, err)
	h, err := r.Commit("ada", "msg")
	require.NoError(t, err)

	c, err := r.Store.GetCommit(h)
	require.NoError(t, err)
	assert.Equal(t, tree, c.TreeHash)
}

func TestCommitUnchangedTreeStillAdvances(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "a.txt", "A")

	c1, err := r.Commit("ada", "one")
	require.NoError(t, err)
	c2, err := r.Commit("ada", "two")
	require.NoError(t, err)

	first, _ := r.Store.GetCommit(c1)
	second, _ := r.Store.GetCommit(c2)
	assert.Equal(t, first.TreeHash, second.TreeHash)
	assert.Equal(t, c1, second.Parent)
}

func TestCommitIdenticalContentDedups(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	frozen := func() time.Time { return at }

	a := initRepo(t, WithClock(frozen))
	b := initRepo(t, WithClock(frozen))
	writeFile(t, a, "x.txt", "same")
	writeFile(t, b, "x.txt", "same")

	ha, err := a.Commit("ada", "same message")
	require.NoError(t, err)
	hb, err := b.Commit("ada", "same message")
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "identical commits in identical repositories share an id")
}

func TestCommitMissingHeadIsPrecondition(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "a.txt", "A")
	require.NoError(t, os.Remove(filepath.Join(r.SnapDir, "HEAD")))

	before, err := os.ReadFile(filepath.Join(r.SnapDir, "index"))
	require.NoError(t, err)

	_, err = r.Commit("ada", "msg")
	assert.ErrorIs(t, err, fault.ErrPrecondition)

	after, err := os.ReadFile(filepath.Join(r.SnapDir, "index"))
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed commit must not touch the index")
	_, err = os.Stat(filepath.Join(r.SnapDir, "HEAD"))
	assert.True(t, os.IsNotExist(err), "HEAD must not be recreated")
}

func TestCommitIndexFailureRestoresHead(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "a.txt", "A")
	c1, err := r.Commit("ada", "first")
	require.NoError(t, err)

	indexBefore, err := os.ReadFile(filepath.Join(r.SnapDir, "index"))
	require.NoError(t, err)
	r.saveIndex = func(*index.Index) error {
		return fault.IO("write index", "index", os.ErrPermission)
	}

	writeFile(t, r, "a.txt", "A2")
	_, err = r.Commit("ada", "second")
	assert.ErrorIs(t, err, fault.ErrIO)

	head, err := r.ReadHead()
	require.NoError(t, err)
	assert.Equal(t, c1, head)
	indexAfter, err := os.ReadFile(filepath.Join(r.SnapDir, "index"))
	require.NoError(t, err)
	assert.Equal(t, indexBefore, indexAfter)
}

func TestCommitRequiresAuthorAndMessage(t *testing.T) {
	r := initRepo(t)
	_, err := r.Commit("", "msg")
	assert.ErrorIs(t, err, fault.ErrInvalidInput)
	_, err = r.Commit("ada", "  ")
	assert.ErrorIs(t, err, fault.ErrInvalidInput)
}

func TestCommitRejectsMultilineAuthor(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "a.txt", "A")

	_, err := r.Commit("alice\nparent deadbeef", "one")
	assert.ErrorIs(t, err, fault.ErrInvalidInput)
	_, err = r.Commit("alice\r", "one")
	assert.ErrorIs(t, err, fault.ErrInvalidInput)

	head, err := r.ReadHead()
	require.NoError(t, err)
	assert.Empty(t, head)
	objs, err := r.Store.List()
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestCommitDirMustBeWorkingTreeRoot(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "top.txt", "T")
	writeFile(t, r, "sub/f.txt", "F")
	c1, err := r.Commit("ada", "first")
	require.NoError(t, err)
	before, err := r.ReadIndex()
	require.NoError(t, err)

	_, err = r.CommitDir("ada", "sub only", filepath.Join(r.RootDir, "sub"))
	assert.ErrorIs(t, err, fault.ErrInvalidInput)

	_, err = r.CommitDir("ada", "missing", filepath.Join(r.RootDir, "nope"))
	assert.ErrorIs(t, err, fault.ErrNotFound)

	head, err := r.ReadHead()
	require.NoError(t, err)
	assert.Equal(t, c1, head)
	after, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Equal(t, before.Entries(), after.Entries())
	for _, e := range after.Entries() {
		assert.False(t, e.Deleted, e.Path)
	}

	// The root given another way is accepted.
	_, err = r.CommitDir("ada", "again", filepath.Join(r.RootDir, "sub", ".."))
	require.NoError(t, err)
}

func TestCommitDirNotADirectory(t *testing.T) {
	r := initRepo(t)
	file := writeFile(t, r, "a.txt", "A")
	_, err := r.CommitDir("ada", "msg", file)
	assert.ErrorIs(t, err, fault.ErrInvalidInput)

	head, err := r.ReadHead()
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestCommitRejectsUnrecordableFileNames(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "keep.txt", "k")
	c1, err := r.Commit("ada", "first")
	require.NoError(t, err)

	for _, name := range []string{"a\nb.txt", "cr\r", "notes deleted"} {
		bad := writeFile(t, r, name, "x")
		_, err := r.Commit("ada", "second")
		assert.ErrorIs(t, err, fault.ErrInvalidInput, "%q", name)
		require.NoError(t, os.Remove(bad))
	}

	head, err := r.ReadHead()
	require.NoError(t, err)
	assert.Equal(t, c1, head)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	_, err = r.Commit("ada", "second")
	require.NoError(t, err)
}

func TestCommitEmptyWorkingTree(t *testing.T) {
	r := initRepo(t)
	h, err := r.Commit("ada", "empty")
	require.NoError(t, err)

	c, err := r.Store.GetCommit(h)
	require.NoError(t, err)
	tr, err := r.Store.GetTree(c.TreeHash)
	require.NoError(t, err)
	assert.Empty(t, tr.Entries)
}

func TestLog(t *testing.T) {
	r := initRepo(t)
	var hashes []object.Hash
	for i, msg := range []string{"one", "two", "three"} {
		writeFile(t, r, "f.txt", msg)
		h, err := r.Commit("ada", msg)
		require.NoError(t, err, "commit %d", i)
		hashes = append(hashes, h)
	}

	entries, err := r.Log(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, hashes[2], entries[0].Hash)
	assert.Equal(t, "three", entries[0].Commit.Message)
	assert.Equal(t, hashes[0], entries[2].Hash)
	assert.Empty(t, entries[2].Commit.Parent)

	limited, err := r.Log(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestLogEmptyRepo(t *testing.T) {
	r := initRepo(t)
	entries, err := r.Log(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHeadLogRecordsTransitions(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "a.txt", "A")
	c1, err := r.Commit("ada", "first\n\nbody")
	require.NoError(t, err)
	writeFile(t, r, "a.txt", "B")
	c2, err := r.Commit("ada", "second")
	require.NoError(t, err)

	log, err := r.ReadHeadLog()
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Empty(t, log[0].OldHash)
	assert.Equal(t, c1, log[0].NewHash)
	assert.Equal(t, "commit: first", log[0].Reason)
	assert.Equal(t, c1, log[1].OldHash)
	assert.Equal(t, c2, log[1].NewHash)
}

func TestWriteHeadRejectsStaleParent(t *testing.T) {
	r := initRepo(t)
	writeFile(t, r, "a.txt", "A")
	c1, err := r.Commit("ada", "first")
	require.NoError(t, err)

	err = r.writeHead(c1, "", "stale")
	assert.ErrorIs(t, err, ErrHeadMoved)
	_, err = os.Stat(filepath.Join(r.SnapDir, "HEAD.lock"))
	assert.True(t, os.IsNotExist(err), "lock is released after a failed update")
}

func TestReadHeadMalformed(t *testing.T) {
	r := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(r.SnapDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))
	_, err := r.ReadHead()
	assert.ErrorIs(t, err, fault.ErrInvalidInput)
}
