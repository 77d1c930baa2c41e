package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/index"
	"github.com/odvcencio/snap/pkg/object"
	"github.com/odvcencio/snap/pkg/snapshot"
)

// ReadIndex loads .snap/index.
func (r *Repo) ReadIndex() (*index.Index, error) {
	return index.Load(r.indexPath())
}

// WriteIndex atomically replaces .snap/index.
func (r *Repo) WriteIndex(idx *index.Index) error {
	return idx.Save(r.indexPath())
}

// Add stages the given file paths. Each path is resolved relative to the
// repo root and must not be ignored by .snapignore; its content is written
// as a blob and its index entry is replaced with a live entry. The index is
// saved once, after every file has been stored.
func (r *Repo) Add(paths []string) ([]object.Hash, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	ign, err := r.ignoreRules()
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	hashes := make([]object.Hash, 0, len(paths))
	for _, p := range paths {
		relPath, err := r.repoRelPath(p)
		if err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}
		if ign.MatchPath(relPath, false) {
			return nil, fault.InvalidInput("add: %s is ignored by %s", relPath, snapshot.IgnoreFileName)
		}

		absPath := filepath.Join(r.RootDir, filepath.FromSlash(relPath))
		info, err := os.Stat(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fault.NotFound("add: %s", relPath)
			}
			return nil, fault.IO("add stat", absPath, err)
		}
		if info.IsDir() {
			return nil, fault.InvalidInput("add: %s is a directory", relPath)
		}
		content, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fault.IO("add read", absPath, err)
		}

		blobHash, err := r.Store.PutBlob(content)
		if err != nil {
			return nil, fmt.Errorf("add: write blob %q: %w", relPath, err)
		}
		idx.Upsert(relPath, object.KindBlob, blobHash)
		hashes = append(hashes, blobHash)
		r.logger.Debug("staged", "path", relPath, "blob", blobHash)
	}

	if err := r.WriteIndex(idx); err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	return hashes, nil
}

// Stage stages a single file and returns its blob id.
func (r *Repo) Stage(path string) (object.Hash, error) {
	hashes, err := r.Add([]string{path})
	if err != nil {
		return "", err
	}
	return hashes[0], nil
}

// Snapshot builds a tree for the working directory, saves the index and
// returns the root tree id without creating a commit.
func (r *Repo) Snapshot() (object.Hash, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	treeHash, err := r.builder(idx).Snapshot(r.RootDir)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	if err := r.WriteIndex(idx); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return treeHash, nil
}

// PurgeIndex drops every tombstoned entry from the index and returns how
// many were removed.
func (r *Repo) PurgeIndex() (int, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	n := idx.Purge()
	if n == 0 {
		return 0, nil
	}
	if err := r.WriteIndex(idx); err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	r.logger.Debug("index purged", "removed", n)
	return n, nil
}

// repoRelPath converts a path (absolute, or relative to the current
// directory) into a slash-separated path relative to the repository root.
// A relative path that does not resolve inside the repository from the
// current directory is taken as already repo-relative.
func (r *Repo) repoRelPath(p string) (string, error) {
	var rel string
	if filepath.IsAbs(p) {
		var err error
		rel, err = filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fault.InvalidInput("cannot make %q relative to %q: %v", p, r.RootDir, err)
		}
	} else {
		rel = filepath.Clean(p)
		if cwd, err := os.Getwd(); err == nil {
			if fromCwd, err := filepath.Rel(r.RootDir, filepath.Join(cwd, p)); err == nil && !escapes(fromCwd) {
				rel = fromCwd
			}
		}
	}

	rel = filepath.ToSlash(rel)
	if rel == "." || escapes(rel) {
		return "", fault.InvalidInput("%q is outside the working tree", p)
	}
	if rel == DirName || strings.HasPrefix(rel, DirName+"/") {
		return "", fault.InvalidInput("%q is inside the repository storage directory", p)
	}
	if err := index.CheckPath(rel); err != nil {
		return "", err
	}
	return rel, nil
}

func escapes(rel string) bool {
	rel = filepath.ToSlash(rel)
	return rel == ".." || strings.HasPrefix(rel, "../")
}
