package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWrittenByInit(t *testing.T) {
	r, err := Init(t.TempDir(), InitOptions{
		Objects: object.Options{Compression: object.CompressionZstd, Hash: object.HashSHA256},
		Author:  "ada",
	})
	require.NoError(t, err)

	cfg, err := r.ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, "zstd", cfg.Objects.Compression)
	assert.Equal(t, "sha256", cfg.Objects.Hash)
	assert.Equal(t, "ada", cfg.User.Name)

	opts, err := cfg.StoreOptions()
	require.NoError(t, err)
	assert.Equal(t, r.Store.Options(), opts)
}

func TestReadConfigMissingReturnsDefaults(t *testing.T) {
	r := initRepo(t)
	require.NoError(t, os.Remove(r.configPath()))

	cfg, err := r.ReadConfig()
	require.NoError(t, err)
	opts, err := cfg.StoreOptions()
	require.NoError(t, err)
	assert.Equal(t, object.DefaultOptions(), opts)
	assert.Empty(t, cfg.User.Name)
}

func TestReadConfigRejectsBadContent(t *testing.T) {
	tests := map[string]string{
		"syntax":      "[objects\ncompression = ",
		"compression": "[objects]\ncompression = \"lz4\"\nhash = \"sha1\"\n",
		"hash":        "[objects]\ncompression = \"gzip\"\nhash = \"md5\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			r := initRepo(t)
			require.NoError(t, os.WriteFile(r.configPath(), []byte(content), 0o644))
			_, err := r.ReadConfig()
			assert.ErrorIs(t, err, fault.ErrInvalidInput)
		})
	}
}

func TestSetAuthorKeepsObjectSettings(t *testing.T) {
	r, err := Init(t.TempDir(), InitOptions{
		Objects: object.Options{Compression: object.CompressionNone},
	})
	require.NoError(t, err)

	require.NoError(t, r.SetAuthor("grace"))
	assert.Equal(t, "grace", r.Config.User.Name)

	reopened, err := Open(r.RootDir)
	require.NoError(t, err)
	assert.Equal(t, "grace", reopened.Config.User.Name)
	assert.Equal(t, object.CompressionNone, reopened.Store.Options().Compression)
}

func TestConfigRoundTrip(t *testing.T) {
	r := initRepo(t)
	require.NoError(t, r.SetAuthor("Ada Lovelace"))

	cfg, err := r.ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", cfg.User.Name)
	assert.Equal(t, "gzip", cfg.Objects.Compression)

	data, err := os.ReadFile(filepath.Join(r.SnapDir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[objects]")
	assert.Contains(t, string(data), `compression = "gzip"`)
}

func TestConfigRejectsGarbage(t *testing.T) {
	r := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(r.SnapDir, "config.toml"), []byte("[objects\n"), 0o644))
	_, err := Open(r.RootDir)
	assert.ErrorIs(t, err, fault.ErrInvalidInput)
}
