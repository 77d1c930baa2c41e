package snapshot

import (
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/snap/pkg/index"
	"github.com/odvcencio/snap/pkg/object"
)

// Encoder computes the stored form and id of an object without writing it.
type Encoder interface {
	Encode(data []byte) (stored []byte, h object.Hash, err error)
}

// Writer persists bytes produced by an Encoder.
type Writer interface {
	PutStored(h object.Hash, stored []byte) (created bool, err error)
}

// PlannedObject is an object a snapshot needs in the store.
type PlannedObject struct {
	Hash   object.Hash
	Kind   object.Kind
	Stored []byte
}

// Plan is the fully computed result of a snapshot, before anything is
// written.
type Plan struct {
	Root    object.Hash
	Objects []PlannedObject // post-order, one per distinct id
	Entries []index.Entry   // one per file and directory, sorted by path
}

// NewPlan hashes the scanned tree bottom-up. File contents are encoded
// concurrently; manifests and entries are assembled on the calling
// goroutine in name order, so the result is deterministic.
func NewPlan(root *Node, enc Encoder) (*Plan, error) {
	if root == nil || !root.IsDir {
		return nil, fmt.Errorf("plan: root must be a directory")
	}

	var files []*Node
	collectFiles(root, &files)
	blobs := make([]PlannedObject, len(files))
	slot := make(map[*Node]int, len(files))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, n := range files {
		slot[n] = i
		g.Go(func() error {
			stored, h, err := enc.Encode(n.Data)
			if err != nil {
				return fmt.Errorf("plan: encode %s: %w", n.Path, err)
			}
			blobs[i] = PlannedObject{Hash: h, Kind: object.KindBlob, Stored: stored}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := &Plan{}
	seen := make(map[object.Hash]bool)
	add := func(o PlannedObject) {
		if seen[o.Hash] {
			return
		}
		seen[o.Hash] = true
		p.Objects = append(p.Objects, o)
	}

	var build func(dir *Node) (object.Hash, error)
	build = func(dir *Node) (object.Hash, error) {
		tr := &object.TreeObj{Entries: make([]object.TreeEntry, 0, len(dir.Children))}
		for _, c := range dir.Children {
			var te object.TreeEntry
			if c.IsDir {
				h, err := build(c)
				if err != nil {
					return "", err
				}
				te = object.TreeEntry{Kind: object.KindTree, Hash: h, Name: c.Name}
			} else {
				b := blobs[slot[c]]
				add(b)
				te = object.TreeEntry{Kind: object.KindBlob, Hash: b.Hash, Name: c.Name}
			}
			tr.Entries = append(tr.Entries, te)
			p.Entries = append(p.Entries, index.Entry{Path: c.Path, Kind: te.Kind, Hash: te.Hash})
		}

		stored, h, err := enc.Encode(object.MarshalTree(tr))
		if err != nil {
			return "", fmt.Errorf("plan: encode tree %q: %w", dir.Path, err)
		}
		add(PlannedObject{Hash: h, Kind: object.KindTree, Stored: stored})
		return h, nil
	}

	rootHash, err := build(root)
	if err != nil {
		return nil, err
	}
	p.Root = rootHash
	sort.Slice(p.Entries, func(i, j int) bool { return p.Entries[i].Path < p.Entries[j].Path })
	return p, nil
}

func collectFiles(n *Node, out *[]*Node) {
	for _, c := range n.Children {
		if c.IsDir {
			collectFiles(c, out)
		} else {
			*out = append(*out, c)
		}
	}
}

// Apply writes the planned objects and then records every entry in idx. It
// returns how many objects were newly created.
func (p *Plan) Apply(w Writer, idx *index.Index) (int, error) {
	created := 0
	for _, o := range p.Objects {
		ok, err := w.PutStored(o.Hash, o.Stored)
		if err != nil {
			return created, fmt.Errorf("apply %s %s: %w", o.Kind, o.Hash, err)
		}
		if ok {
			created++
		}
	}
	for _, e := range p.Entries {
		idx.Upsert(e.Path, e.Kind, e.Hash)
	}
	return created, nil
}
