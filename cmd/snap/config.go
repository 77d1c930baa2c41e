package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix selects environment overrides: SNAP_AUTHOR -> author.
const envPrefix = "SNAP_"

// rcFileName is read from the home directory when --config is not given.
const rcFileName = ".snaprc.yaml"

// cliConfig holds settings shared by every command.
type cliConfig struct {
	Dir         string `koanf:"dir"`
	Author      string `koanf:"author"`
	Verbose     bool   `koanf:"verbose"`
	Compression string `koanf:"compression"`
	Hash        string `koanf:"hash"`

	// ConfigFile is the file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

// configKeys are the flag names that map onto cliConfig.
var configKeys = map[string]bool{
	"dir":         true,
	"author":      true,
	"verbose":     true,
	"compression": true,
	"hash":        true,
}

// findConfigFile returns the config file to use.
// Priority: explicit path > ~/.snaprc.yaml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(home, rcFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// loadConfig layers configuration sources.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func loadConfig(cfgFile string, flags *pflag.FlagSet) (*cliConfig, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"dir":     ".",
		"verbose": false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || !configKeys[f.Name] {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg cliConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigFile = used
	return &cfg, nil
}
