package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/object"
)

// Commit snapshots the repository's working tree and records it as the
// next commit on HEAD.
func (r *Repo) Commit(author, message string) (object.Hash, error) {
	return r.CommitDir(author, message, r.RootDir)
}

// CommitDir snapshots dir and records it as the next commit. Index paths
// are relative to the repository root, so dir must be RootDir itself (or
// another name for it).
//
//  1. Read HEAD to get the parent ("" for the first commit)
//  2. Load the index and snapshot dir into tree objects
//  3. Write the commit object
//  4. Move HEAD to the new commit
//  5. Save the index
//
// Objects are always written before HEAD moves. If saving the index fails,
// HEAD is moved back, so a failed commit leaves HEAD and the index as they
// were; only unreferenced objects remain.
func (r *Repo) CommitDir(author, message, dir string) (object.Hash, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return "", fault.InvalidInput("commit: author is required")
	}
	if strings.ContainsAny(author, "\n\r") {
		return "", fault.InvalidInput("commit: author %q spans lines", author)
	}
	if strings.TrimSpace(message) == "" {
		return "", fault.InvalidInput("commit: message is required")
	}
	if err := r.checkWorkDir(dir); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// 1. Parent.
	parent, err := r.ReadHead()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// 2. Tree.
	idx, err := r.ReadIndex()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	treeHash, err := r.builder(idx).Snapshot(dir)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// 3. Commit object.
	c := &object.CommitObj{
		TreeHash:  treeHash,
		Parent:    parent,
		Author:    author,
		Timestamp: r.now().UTC().Format(time.RFC3339Nano),
		Message:   message,
	}
	commitHash, created, err := r.Store.PutCommit(c)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}
	if !created {
		r.logger.Debug("commit object already existed", "commit", commitHash)
	}

	// 4. HEAD.
	if err := r.writeHead(commitHash, parent, "commit: "+firstLine(message)); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// 5. Index.
	if err := r.saveIndex(idx); err != nil {
		if rbErr := r.writeHead(parent, commitHash, "commit (rollback)"); rbErr != nil {
			return "", fmt.Errorf("commit: %w (restoring HEAD: %v)", err, rbErr)
		}
		return "", fmt.Errorf("commit: %w", err)
	}

	r.logger.Info("committed", "commit", commitHash, "tree", treeHash, "parent", parent)
	return commitHash, nil
}

func (r *Repo) checkWorkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fault.NotFound("%s", dir)
		}
		return fault.IO("stat", dir, err)
	}
	if !info.IsDir() {
		return fault.InvalidInput("%s is not a directory", dir)
	}
	root, err := os.Stat(r.RootDir)
	if err != nil {
		return fault.IO("stat", r.RootDir, err)
	}
	if !os.SameFile(info, root) {
		return fault.InvalidInput("%s is not the working tree root %s", dir, r.RootDir)
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// LogEntry pairs a commit with its id.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks the commit chain from HEAD, following parent links, returning
// up to limit commits newest first. A non-positive limit returns the whole
// chain.
func (r *Repo) Log(limit int) ([]LogEntry, error) {
	current, err := r.ReadHead()
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}

	var entries []LogEntry
	for current != "" && (limit <= 0 || len(entries) < limit) {
		c, err := r.Store.GetCommit(current)
		if err != nil {
			if errors.Is(err, fault.ErrNotFound) {
				return entries, fmt.Errorf("log: broken chain at %s: %w", current, err)
			}
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		entries = append(entries, LogEntry{Hash: current, Commit: c})
		current = c.Parent
	}
	return entries, nil
}
