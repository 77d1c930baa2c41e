package repo

import (
	"fmt"
	"sort"

	"github.com/odvcencio/snap/pkg/object"
)

// FsckReport summarises a consistency check of the object store.
type FsckReport struct {
	Objects   int           // objects in the store
	Reachable int           // objects reachable from HEAD or the index
	Dangling  []object.Hash // stored but unreferenced, e.g. left by a failed commit
	Missing   []object.Ref  // referenced but not stored
	Broken    []object.Ref  // stored but unreadable as the kind they are referenced as
	Corrupt   []object.Hash // content no longer matches the id
}

// OK reports whether the repository is consistent. Dangling objects are
// harmless and do not count.
func (f *FsckReport) OK() bool {
	return len(f.Missing) == 0 && len(f.Broken) == 0 && len(f.Corrupt) == 0
}

// Fsck walks the object graph from HEAD and from every index entry,
// tombstones included, and rehashes every stored object. Nothing is
// modified.
func (r *Repo) Fsck() (*FsckReport, error) {
	roots, err := r.roots()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}

	walk, err := r.Store.Reachable(roots)
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	verify, err := r.Store.Verify()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	ids, err := r.Store.List()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}

	report := &FsckReport{
		Objects:   verify.Objects,
		Reachable: len(walk.Reachable),
		Missing:   walk.Missing,
		Broken:    walk.Broken,
		Corrupt:   verify.Corrupt,
	}
	for _, h := range ids {
		if _, ok := walk.Reachable[h]; !ok {
			report.Dangling = append(report.Dangling, h)
		}
	}

	r.logger.Debug("fsck done",
		"objects", report.Objects,
		"reachable", report.Reachable,
		"dangling", len(report.Dangling),
		"missing", len(report.Missing),
		"corrupt", len(report.Corrupt),
	)
	return report, nil
}

// roots returns the typed references held by HEAD and the index, in a
// stable order.
func (r *Repo) roots() ([]object.Ref, error) {
	head, err := r.ReadHead()
	if err != nil {
		return nil, err
	}
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}

	var roots []object.Ref
	if head != "" {
		roots = append(roots, object.Ref{Kind: object.KindCommit, Hash: head})
	}
	seen := make(map[object.Hash]struct{})
	var fromIndex []object.Ref
	for _, e := range idx.Entries() {
		if _, ok := seen[e.Hash]; ok {
			continue
		}
		seen[e.Hash] = struct{}{}
		fromIndex = append(fromIndex, object.Ref{Kind: e.Kind, Hash: e.Hash})
	}
	sort.Slice(fromIndex, func(i, j int) bool { return fromIndex[i].Hash < fromIndex[j].Hash })
	return append(roots, fromIndex...), nil
}
