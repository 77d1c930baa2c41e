// Package snapshot turns a working directory into tree and blob objects.
//
// A snapshot runs in three phases so the hashing logic can be exercised
// without a filesystem: Scan reads the directory into memory, NewPlan
// computes every object id and index entry, and Apply persists them.
package snapshot

import (
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/index"
)

// Node is one file or directory of a scanned working tree.
type Node struct {
	Name     string
	Path     string // slash-separated, relative to the scan root; "" for the root
	IsDir    bool
	Data     []byte  // file content, nil for directories
	Children []*Node // sorted by Name, directories only
}

// Scan reads the tree rooted at fsys's "." into memory. A root-level child
// named exclude (the repository storage directory) is skipped, as is every
// path ign matches. Entries that are neither regular files nor directories,
// such as symlinks, are not part of a snapshot. A name the index cannot
// record fails the scan with fault.ErrInvalidInput.
func Scan(fsys fs.FS, exclude string, ign *Ignore) (*Node, error) {
	root := &Node{IsDir: true}
	var files []*Node
	w := &scanner{fsys: fsys, exclude: exclude, ignore: ign, files: &files}
	if err := w.scanDir(root); err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, n := range files {
		g.Go(func() error {
			data, err := fs.ReadFile(fsys, n.Path)
			if err != nil {
				return fault.IO("scan read", n.Path, err)
			}
			n.Data = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return root, nil
}

type scanner struct {
	fsys    fs.FS
	exclude string
	ignore  *Ignore
	files   *[]*Node
}

func (w *scanner) scanDir(dir *Node) error {
	name := dir.Path
	if name == "" {
		name = "."
	}
	dirents, err := fs.ReadDir(w.fsys, name)
	if err != nil {
		return fault.IO("scan list", name, err)
	}
	sort.Slice(dirents, func(i, j int) bool {
		return dirents[i].Name() < dirents[j].Name()
	})

	for _, de := range dirents {
		if dir.Path == "" && de.Name() == w.exclude {
			continue
		}
		child := &Node{Name: de.Name(), Path: path.Join(dir.Path, de.Name())}
		if w.ignore.Match(child.Path, de.IsDir()) {
			continue
		}
		if err := index.CheckPath(child.Path); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		switch {
		case de.IsDir():
			child.IsDir = true
			if err := w.scanDir(child); err != nil {
				return err
			}
		case de.Type().IsRegular():
			*w.files = append(*w.files, child)
		default:
			continue
		}
		dir.Children = append(dir.Children, child)
	}
	return nil
}

// Paths returns the set of every file and directory path below n.
func (n *Node) Paths() map[string]struct{} {
	out := make(map[string]struct{})
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			out[c.Path] = struct{}{}
			walk(c)
		}
	}
	walk(n)
	return out
}
