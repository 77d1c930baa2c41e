package object

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/snap/pkg/fault"
)

// Options fixes how a Store encodes and identifies objects.
type Options struct {
	Compression Compression
	Hash        HashAlgorithm
}

// DefaultOptions returns the options new repositories are created with.
func DefaultOptions() Options {
	return Options{Compression: DefaultCompression, Hash: DefaultHash}
}

// Store is a content-addressed object store with a flat layout:
// objects/<hex id>. The id of an object is the digest of its stored
// (possibly compressed) bytes.
type Store struct {
	root string
	opts Options
}

// NewStore creates a Store rooted at the given repository directory. The
// objects/ subdirectory is created lazily on first write.
func NewStore(root string, opts Options) (*Store, error) {
	comp, err := ParseCompression(string(opts.Compression))
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	alg, err := ParseHashAlgorithm(string(opts.Hash))
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	return &Store{root: root, opts: Options{Compression: comp, Hash: alg}}, nil
}

// Options returns the store's effective options.
func (s *Store) Options() Options {
	return s.opts
}

func (s *Store) objectsDir() string {
	return filepath.Join(s.root, "objects")
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.objectsDir(), string(h))
}

func (s *Store) validHash(h Hash) bool {
	return IsHex(string(h), s.opts.Hash.HexLen())
}

// Encode returns the bytes that Put would store for data and their id. It
// does not touch the filesystem.
func (s *Store) Encode(data []byte) ([]byte, Hash, error) {
	stored, err := s.opts.Compression.encode(data)
	if err != nil {
		return nil, "", fmt.Errorf("object encode: %w", err)
	}
	return stored, s.opts.Hash.Sum(stored), nil
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if !s.validHash(h) {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Put stores data and returns its id. Writing an object that already
// exists is a no-op that still returns the id.
func (s *Store) Put(data []byte) (Hash, error) {
	h, _, err := s.put(data)
	return h, err
}

// put is Put that also reports whether a new object file was created.
func (s *Store) put(data []byte) (Hash, bool, error) {
	stored, h, err := s.Encode(data)
	if err != nil {
		return "", false, err
	}
	created, err := s.writeStored(h, stored)
	if err != nil {
		return "", false, err
	}
	return h, created, nil
}

// PutStored persists bytes previously produced by Encode. The id is
// recomputed and must match h.
func (s *Store) PutStored(h Hash, stored []byte) (bool, error) {
	if got := s.opts.Hash.Sum(stored); got != h {
		return false, fault.InvalidInput("object put %s: content hashes to %s", h, got)
	}
	return s.writeStored(h, stored)
}

// writeStored writes stored bytes under h unless the object already exists.
// Writes are atomic: data is written to a temp file and then renamed into
// place.
func (s *Store) writeStored(h Hash, stored []byte) (bool, error) {
	// Fast path: already exists.
	if s.Has(h) {
		return false, nil
	}

	dir := s.objectsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fault.IO("object write mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return false, fault.IO("object write tmpfile", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(stored); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return false, fault.IO("object write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return false, fault.IO("object write close", tmpName, err)
	}

	dest := s.objectPath(h)
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return false, fault.IO("object write rename", dest, err)
	}
	return true, nil
}

// ReadStored returns the bytes exactly as they are stored on disk.
func (s *Store) ReadStored(h Hash) ([]byte, error) {
	if !s.validHash(h) {
		return nil, fault.NotFound("object read %q", h)
	}
	raw, err := os.ReadFile(s.objectPath(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fault.NotFound("object read %s", h)
		}
		return nil, fault.IO("object read", s.objectPath(h), err)
	}
	return raw, nil
}

// Get retrieves an object by hash and returns its original (decoded) bytes.
func (s *Store) Get(h Hash) ([]byte, error) {
	raw, err := s.ReadStored(h)
	if err != nil {
		return nil, err
	}
	data, err := s.opts.Compression.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("object read %s: decode %s: %w", h, s.opts.Compression, err)
	}
	return data, nil
}

// List returns the ids of all stored objects in ascending order.
func (s *Store) List() ([]Hash, error) {
	dirents, err := os.ReadDir(s.objectsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fault.IO("object list", s.objectsDir(), err)
	}
	var out []Hash
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !s.validHash(Hash(name)) {
			continue
		}
		out = append(out, Hash(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// PutBlob stores raw file bytes.
func (s *Store) PutBlob(data []byte) (Hash, error) {
	return s.Put(data)
}

// GetBlob returns the raw file bytes stored under h.
func (s *Store) GetBlob(h Hash) ([]byte, error) {
	return s.Get(h)
}

// PutTree serializes and stores a TreeObj.
func (s *Store) PutTree(tr *TreeObj) (Hash, error) {
	for _, e := range tr.Entries {
		if e.Name == "" || strings.ContainsAny(e.Name, "\n\r") {
			return "", fault.InvalidInput("tree entry name %q", e.Name)
		}
	}
	return s.Put(MarshalTree(tr))
}

// GetTree reads and deserializes a TreeObj.
func (s *Store) GetTree(h Hash) (*TreeObj, error) {
	data, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	tr, err := UnmarshalTree(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", h, err)
	}
	return tr, nil
}

// PutCommit serializes and stores a CommitObj. created is false when an
// identical commit already existed. Header fields must be single-line.
func (s *Store) PutCommit(c *CommitObj) (h Hash, created bool, err error) {
	for _, f := range []struct{ key, val string }{
		{"tree", string(c.TreeHash)},
		{"parent", string(c.Parent)},
		{"author", c.Author},
		{"date", c.Timestamp},
	} {
		if strings.ContainsAny(f.val, "\n\r") {
			return "", false, fault.InvalidInput("commit %s %q spans lines", f.key, f.val)
		}
	}
	return s.put(MarshalCommit(c))
}

// GetCommit reads and deserializes a CommitObj.
func (s *Store) GetCommit(h Hash) (*CommitObj, error) {
	data, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	c, err := UnmarshalCommit(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", h, err)
	}
	return c, nil
}

// MinPrefixLen is the shortest id prefix ResolvePrefix accepts.
const MinPrefixLen = 4

// ResolvePrefix expands an abbreviated id to the single stored object it
// names. A full-length id is returned as is when the object exists.
func (s *Store) ResolvePrefix(prefix string) (Hash, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < MinPrefixLen || !IsHex(prefix, len(prefix)) {
		return "", fault.InvalidInput("object id %q: need at least %d hex characters", prefix, MinPrefixLen)
	}
	if len(prefix) == s.opts.Hash.HexLen() {
		if !s.Has(Hash(prefix)) {
			return "", fault.NotFound("object %s", prefix)
		}
		return Hash(prefix), nil
	}

	ids, err := s.List()
	if err != nil {
		return "", err
	}
	var match Hash
	for _, h := range ids {
		if !strings.HasPrefix(string(h), prefix) {
			continue
		}
		if match != "" {
			return "", fault.InvalidInput("object id %q is ambiguous", prefix)
		}
		match = h
	}
	if match == "" {
		return "", fault.NotFound("object %s", prefix)
	}
	return match, nil
}
