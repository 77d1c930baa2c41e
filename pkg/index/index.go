// Package index records the last-observed mapping of working-tree paths to
// object ids, including tombstones for paths that have disappeared.
//
// The on-disk form is one line per entry, sorted by path:
//
//	kind hash path[ deleted]
//
// Every save rewrites the whole file through a temp file and rename.
package index

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/object"
)

const deletedSuffix = " deleted"

// Entry is the index record for one repo-relative path.
type Entry struct {
	Path    string
	Kind    object.Kind
	Hash    object.Hash
	Deleted bool
}

func (e Entry) String() string {
	line := fmt.Sprintf("%s %s %s", e.Kind, e.Hash, e.Path)
	if e.Deleted {
		line += deletedSuffix
	}
	return line
}

// CheckPath reports whether p can be stored as an index path. Index and
// tree records are newline-terminated and a tombstone is a trailing
// " deleted", so paths containing a line break, or ending in that suffix,
// would not read back as written.
func CheckPath(p string) error {
	if strings.ContainsAny(p, "\n\r") {
		return fault.InvalidInput("path %q contains a line break", p)
	}
	if strings.HasSuffix(p, deletedSuffix) {
		return fault.InvalidInput("path %q ends in %q", p, deletedSuffix)
	}
	return nil
}

// Index is an in-memory, path-keyed view of the index file. It is not safe
// for concurrent use.
type Index struct {
	entries map[string]*Entry
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string]*Entry)}
}

// Load reads the index file at path. A missing file yields an empty index.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fault.IO("read index", path, err)
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return idx, nil
}

// Parse decodes index file content. Blank lines are ignored; for duplicate
// paths the last line wins.
func Parse(data []byte) (*Index, error) {
	idx := New()
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			return nil, fault.InvalidInput("index line %d: %v", lineNo, err)
		}
		idx.entries[e.Path] = &e
	}
	if err := sc.Err(); err != nil {
		return nil, fault.InvalidInput("index: %v", err)
	}
	return idx, nil
}

func parseLine(line string) (Entry, error) {
	var e Entry
	rest := line
	if strings.HasSuffix(rest, deletedSuffix) {
		e.Deleted = true
		rest = strings.TrimSuffix(rest, deletedSuffix)
	}
	parts := strings.SplitN(rest, " ", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return Entry{}, fmt.Errorf("malformed entry %q", line)
	}
	kind, ok := object.ParseKind(parts[0])
	if !ok {
		return Entry{}, fmt.Errorf("unknown kind %q", parts[0])
	}
	e.Kind = kind
	e.Hash = object.Hash(parts[1])
	e.Path = parts[2]
	return e, nil
}

// Marshal encodes the index in its file form, sorted by path.
func (idx *Index) Marshal() []byte {
	var buf bytes.Buffer
	for _, e := range idx.Entries() {
		buf.WriteString(e.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Save atomically replaces the index file at path.
func (idx *Index) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".index-tmp-*")
	if err != nil {
		return fault.IO("write index tmpfile", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(idx.Marshal()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fault.IO("write index", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fault.IO("write index close", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fault.IO("write index rename", path, err)
	}
	return nil
}

// Len returns the number of entries, tombstones included.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Get returns the entry for path.
func (idx *Index) Get(path string) (Entry, bool) {
	e, ok := idx.entries[path]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns a copy of all entries sorted by path.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Upsert replaces any entry for path with a live entry.
func (idx *Index) Upsert(path string, kind object.Kind, h object.Hash) {
	idx.entries[path] = &Entry{Path: path, Kind: kind, Hash: h}
}

// MarkDeleted tombstones the entry for path, keeping its last-known id. It
// reports whether anything changed; absent or already-deleted paths are
// left alone.
func (idx *Index) MarkDeleted(path string) bool {
	e, ok := idx.entries[path]
	if !ok || e.Deleted {
		return false
	}
	e.Deleted = true
	return true
}

// ReconcileDeletions tombstones every live entry whose path is not in live
// and returns the newly tombstoned paths in sorted order.
func (idx *Index) ReconcileDeletions(live map[string]struct{}) []string {
	var marked []string
	for p, e := range idx.entries {
		if e.Deleted {
			continue
		}
		if _, ok := live[p]; ok {
			continue
		}
		e.Deleted = true
		marked = append(marked, p)
	}
	sort.Strings(marked)
	return marked
}

// Purge drops all tombstones and returns how many were removed.
func (idx *Index) Purge() int {
	n := 0
	for p, e := range idx.entries {
		if e.Deleted {
			delete(idx.entries, p)
			n++
		}
	}
	return n
}
