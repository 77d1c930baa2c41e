package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/index"
	"github.com/odvcencio/snap/pkg/object"
)

// InitOptions configures a new repository.
type InitOptions struct {
	Objects object.Options // zero fields select the defaults
	Author  string         // optional default commit author
}

// Init creates a new snap repository in the working directory path. It
// creates .snap/ with objects/, an empty HEAD, an empty index and
// config.toml. Returns an error if a .snap/ directory already exists.
func Init(path string, iopts InitOptions, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	r := newRepo(abs, opts)

	if _, err := os.Stat(r.SnapDir); err == nil {
		return nil, fault.Precondition("init: repository already exists at %s", r.SnapDir)
	}

	cfg := &Config{User: UserConfig{Name: iopts.Author}}
	cfg.Objects.Compression = string(iopts.Objects.Compression)
	cfg.Objects.Hash = string(iopts.Objects.Hash)
	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	cfg.Objects.Compression = string(storeOpts.Compression)
	cfg.Objects.Hash = string(storeOpts.Hash)

	objectsDir := filepath.Join(r.SnapDir, "objects")
	if err := os.MkdirAll(objectsDir, 0o755); err != nil {
		return nil, fault.IO("init mkdir", objectsDir, err)
	}
	if err := os.WriteFile(r.headPath(), nil, 0o644); err != nil {
		return nil, fault.IO("init write HEAD", r.headPath(), err)
	}
	if err := index.New().Save(r.indexPath()); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := r.WriteConfig(cfg); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	if r.Store, err = object.NewStore(r.SnapDir, storeOpts); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	r.Config = cfg
	r.logger.Debug("repository initialized",
		"dir", r.SnapDir,
		"compression", storeOpts.Compression,
		"hash", storeOpts.Hash,
	)
	return r, nil
}

// Open searches upward from path for a .snap/ directory and opens the
// repository.
func Open(path string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		info, err := os.Stat(filepath.Join(cur, DirName))
		if err == nil && info.IsDir() {
			return openAt(cur, opts)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fault.Precondition("open: not a snap repository (or any parent up to /)")
		}
		cur = parent
	}
}

func openAt(root string, opts []Option) (*Repo, error) {
	r := newRepo(root, opts)
	cfg, err := r.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if want := r.require; want != nil {
		if want.Compression != "" && want.Compression != storeOpts.Compression {
			return nil, fault.Precondition("open: repository uses compression %q, not %q", storeOpts.Compression, want.Compression)
		}
		if want.Hash != "" && want.Hash != storeOpts.Hash {
			return nil, fault.Precondition("open: repository uses hash %q, not %q", storeOpts.Hash, want.Hash)
		}
	}
	if r.Store, err = object.NewStore(r.SnapDir, storeOpts); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	r.Config = cfg
	return r, nil
}

// Reset deletes the entire .snap/ directory: every object, the index and
// HEAD. The Repo must not be used afterwards.
func (r *Repo) Reset() error {
	if _, err := os.Stat(r.SnapDir); err != nil {
		if os.IsNotExist(err) {
			return fault.Precondition("reset: no repository at %s", r.SnapDir)
		}
		return fault.IO("reset stat", r.SnapDir, err)
	}
	if err := os.RemoveAll(r.SnapDir); err != nil {
		return fault.IO("reset", r.SnapDir, err)
	}
	r.logger.Debug("repository removed", "dir", r.SnapDir)
	return nil
}
