package repo

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/object"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path string
	Hash object.Hash
}

// ResolveTree turns a revision into a tree id. rev may be "HEAD" (or
// empty), a commit id, a tree id, or an unambiguous prefix of either.
func (r *Repo) ResolveTree(rev string) (object.Hash, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" || rev == "HEAD" {
		head, err := r.ReadHead()
		if err != nil {
			return "", err
		}
		if head == "" {
			return "", fault.NotFound("HEAD has no commits yet")
		}
		rev = string(head)
	}

	h, err := r.Store.ResolvePrefix(rev)
	if err != nil {
		return "", err
	}
	c, err := r.Store.GetCommit(h)
	if err == nil {
		return c.TreeHash, nil
	}
	if errors.Is(err, fault.ErrIO) {
		return "", err
	}
	if _, err := r.Store.GetTree(h); err != nil {
		if errors.Is(err, fault.ErrIO) {
			return "", err
		}
		return "", fault.InvalidInput("%s is neither a commit nor a tree", h.Short())
	}
	return h, nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full paths (using forward slashes) in path order.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.GetTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := path.Join(prefix, entry.Name)
		if entry.Kind == object.KindTree {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}
		result = append(result, TreeFileEntry{Path: fullPath, Hash: entry.Hash})
	}
	return result, nil
}
