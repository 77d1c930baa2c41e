package repo

import (
	"fmt"
	"os"
	"sort"

	"github.com/odvcencio/snap/pkg/index"
	"github.com/odvcencio/snap/pkg/object"
	"github.com/odvcencio/snap/pkg/snapshot"
)

// FileStatus describes how a working-tree file differs from the index.
type FileStatus int

const (
	StatusAdded    FileStatus = iota + 1 // on disk, never indexed
	StatusModified                       // on disk, content differs from the index
	StatusDeleted                        // indexed and live, missing from disk
	StatusRestored                       // tombstoned in the index, present again
)

func (s FileStatus) String() string {
	switch s {
	case StatusAdded:
		return "added"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusRestored:
		return "restored"
	}
	return fmt.Sprintf("FileStatus(%d)", int(s))
}

// StatusEntry records the status of a single file.
type StatusEntry struct {
	Path   string
	Status FileStatus
	Hash   object.Hash // working-tree id, or the last-known id for deletions
}

// Status compares the working tree against the index without writing any
// objects. Only files are reported; a directory's state follows from its
// contents. Entries are sorted by path.
func (r *Repo) Status() ([]StatusEntry, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	ign, err := r.ignoreRules()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	root, err := snapshot.Scan(os.DirFS(r.RootDir), DirName, ign)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	plan, err := snapshot.NewPlan(root, r.Store)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return diffIndex(idx, plan.Entries), nil
}

func diffIndex(idx *index.Index, work []index.Entry) []StatusEntry {
	var out []StatusEntry
	onDisk := make(map[string]struct{}, len(work))

	for _, w := range work {
		onDisk[w.Path] = struct{}{}
		if w.Kind != object.KindBlob {
			continue
		}
		e, ok := idx.Get(w.Path)
		switch {
		case !ok:
			out = append(out, StatusEntry{Path: w.Path, Status: StatusAdded, Hash: w.Hash})
		case e.Deleted:
			out = append(out, StatusEntry{Path: w.Path, Status: StatusRestored, Hash: w.Hash})
		case e.Kind != w.Kind || e.Hash != w.Hash:
			out = append(out, StatusEntry{Path: w.Path, Status: StatusModified, Hash: w.Hash})
		}
	}

	for _, e := range idx.Entries() {
		if e.Deleted || e.Kind != object.KindBlob {
			continue
		}
		if _, ok := onDisk[e.Path]; !ok {
			out = append(out, StatusEntry{Path: e.Path, Status: StatusDeleted, Hash: e.Hash})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
