package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/object"
)

// Config stores repository-local settings. The [objects] table is written
// once by Init and must not change afterwards: object ids depend on it.
type Config struct {
	Objects ObjectsConfig `toml:"objects"`
	User    UserConfig    `toml:"user"`
}

// ObjectsConfig selects how the object store encodes and hashes objects.
type ObjectsConfig struct {
	Compression string `toml:"compression"`
	Hash        string `toml:"hash"`
}

// UserConfig holds the default commit author.
type UserConfig struct {
	Name string `toml:"name,omitempty"`
}

// StoreOptions validates and returns the object store options.
func (c *Config) StoreOptions() (object.Options, error) {
	comp, err := object.ParseCompression(c.Objects.Compression)
	if err != nil {
		return object.Options{}, err
	}
	alg, err := object.ParseHashAlgorithm(c.Objects.Hash)
	if err != nil {
		return object.Options{}, err
	}
	return object.Options{Compression: comp, Hash: alg}, nil
}

// ReadConfig reads .snap/config.toml. A missing file yields the defaults a
// repository created without one has always used.
func (r *Repo) ReadConfig() (*Config, error) {
	cfg := &Config{Objects: ObjectsConfig{
		Compression: string(object.DefaultCompression),
		Hash:        string(object.DefaultHash),
	}}
	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fault.IO("read config", r.configPath(), err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fault.InvalidInput("read config: %v", err)
	}
	if _, err := cfg.StoreOptions(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

// WriteConfig atomically writes .snap/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	tmp, err := os.CreateTemp(r.SnapDir, ".config-tmp-*")
	if err != nil {
		return fault.IO("write config tmpfile", r.SnapDir, err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fault.IO("write config close", tmpName, err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fault.IO("write config rename", r.configPath(), err)
	}
	return nil
}

// SetAuthor records the default commit author in the repository config.
// The object settings are left untouched.
func (r *Repo) SetAuthor(name string) error {
	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	cfg.User.Name = name
	if err := r.WriteConfig(cfg); err != nil {
		return err
	}
	r.Config = cfg
	return nil
}
