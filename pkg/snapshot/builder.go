package snapshot

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/index"
	"github.com/odvcencio/snap/pkg/object"
)

// Store is the object store surface a Builder needs.
type Store interface {
	Encoder
	Writer
}

// Builder snapshots a working directory into a Store and records what it
// saw in an Index. The caller owns persisting the index.
type Builder struct {
	Store   Store
	Index   *index.Index
	Exclude string       // root-level directory name left out of every snapshot
	Logger  *slog.Logger // optional, discards if nil

	// IgnoreFile names a root-level pattern file read from the snapshotted
	// directory, usually IgnoreFileName. Empty disables ignore rules.
	IgnoreFile string
}

// Snapshot builds the tree for dir and returns its id. Index entries whose
// paths no longer exist are tombstoned before the new entries are recorded.
func (b *Builder) Snapshot(dir string) (object.Hash, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fault.NotFound("snapshot %s", dir)
		}
		return "", fault.IO("snapshot stat", dir, err)
	}
	if !info.IsDir() {
		return "", fault.InvalidInput("snapshot: %s is not a directory", dir)
	}

	fsys := os.DirFS(dir)
	var ign *Ignore
	if b.IgnoreFile != "" {
		if ign, err = LoadIgnore(fsys, b.IgnoreFile); err != nil {
			return "", err
		}
	}

	root, err := Scan(fsys, b.Exclude, ign)
	if err != nil {
		return "", err
	}

	for _, p := range b.Index.ReconcileDeletions(root.Paths()) {
		logger.Debug("path removed", "path", p)
	}

	plan, err := NewPlan(root, b.Store)
	if err != nil {
		return "", err
	}
	created, err := plan.Apply(b.Store, b.Index)
	if err != nil {
		return "", err
	}

	logger.Debug("snapshot built",
		"dir", dir,
		"tree", plan.Root,
		"objects", len(plan.Objects),
		"new_objects", created,
		"entries", len(plan.Entries),
	)
	return plan.Root, nil
}
