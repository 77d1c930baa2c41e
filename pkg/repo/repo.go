package repo

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/odvcencio/snap/pkg/index"
	"github.com/odvcencio/snap/pkg/object"
	"github.com/odvcencio/snap/pkg/snapshot"
)

// DirName is the storage directory created inside a working tree. It is
// never part of a snapshot.
const DirName = ".snap"

// Repo represents an opened snap repository.
type Repo struct {
	RootDir string        // working directory root
	SnapDir string        // .snap/ directory
	Store   *object.Store // content-addressed object store
	Config  *Config       // settings read from .snap/config.toml

	logger    *slog.Logger
	now       func() time.Time
	require   *object.Options
	saveIndex func(*index.Index) error
}

// Option customises a Repo returned by Init or Open.
type Option func(*Repo)

// WithLogger sets the structured logger. Repositories discard logs by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repo) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the time source used for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repo) {
		if now != nil {
			r.now = now
		}
	}
}

// RequireObjects makes Open fail unless the repository was created with
// the given object options. Empty fields are not checked.
func RequireObjects(opts object.Options) Option {
	return func(r *Repo) {
		r.require = &opts
	}
}

func newRepo(root string, opts []Option) *Repo {
	r := &Repo{
		RootDir: root,
		SnapDir: filepath.Join(root, DirName),
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	r.saveIndex = r.WriteIndex
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repo) indexPath() string {
	return filepath.Join(r.SnapDir, "index")
}

func (r *Repo) headPath() string {
	return filepath.Join(r.SnapDir, "HEAD")
}

func (r *Repo) configPath() string {
	return filepath.Join(r.SnapDir, "config.toml")
}

// builder returns a snapshot builder that records into idx, skipping the
// storage directory and anything .snapignore names.
func (r *Repo) builder(idx *index.Index) *snapshot.Builder {
	return &snapshot.Builder{
		Store:      r.Store,
		Index:      idx,
		Exclude:    DirName,
		IgnoreFile: snapshot.IgnoreFileName,
		Logger:     r.logger,
	}
}

// ignoreRules loads .snapignore from the working tree root.
func (r *Repo) ignoreRules() (*snapshot.Ignore, error) {
	return snapshot.LoadIgnore(os.DirFS(r.RootDir), snapshot.IgnoreFileName)
}
