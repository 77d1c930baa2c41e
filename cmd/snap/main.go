package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/odvcencio/snap/pkg/object"
	"github.com/odvcencio/snap/pkg/repo"
	"github.com/spf13/cobra"
)

const version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the loaded configuration into subcommands.
type app struct {
	cfgFile string
	cfg     *cliConfig
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "snap",
		Short: "Content-addressed snapshots of a working directory",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if cfg.ConfigFile != "" {
				a.logger.Debug("using config file", "path", cfg.ConfigFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ~/"+rcFileName+")")
	flags.StringP("dir", "C", ".", "run as if started in this directory")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.String("author", "", "commit author (default: repository user.name, then $USER)")
	flags.String("compression", "", "object compression: none, gzip or zstd")
	flags.String("hash", "", "object hash: sha1, sha256, blake2b or sha3")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newAddCmd(a))
	root.AddCommand(newWriteTreeCmd(a))
	root.AddCommand(newCommitCmd(a))
	root.AddCommand(newLogCmd(a))
	root.AddCommand(newCatFileCmd(a))
	root.AddCommand(newLsIndexCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newPurgeCmd(a))
	root.AddCommand(newCountObjectsCmd(a))
	root.AddCommand(newLsTreeCmd(a))
	root.AddCommand(newFsckCmd(a))
	root.AddCommand(newResetCmd(a))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "snap %s\n", version)
		},
	}
}

// objectOptions returns the object settings requested on the command line
// or through configuration. Empty fields mean "whatever the repository uses".
func (a *app) objectOptions() object.Options {
	return object.Options{
		Compression: object.Compression(a.cfg.Compression),
		Hash:        object.HashAlgorithm(a.cfg.Hash),
	}
}

// openRepo opens the repository containing the configured directory.
func (a *app) openRepo() (*repo.Repo, error) {
	return repo.Open(a.cfg.Dir,
		repo.WithLogger(a.logger),
		repo.RequireObjects(a.objectOptions()),
	)
}

// author resolves the commit author: flag/env/config file, then the
// repository's user.name, then $USER.
func (a *app) author(r *repo.Repo) string {
	if a.cfg.Author != "" {
		return a.cfg.Author
	}
	if r.Config != nil && r.Config.User.Name != "" {
		return r.Config.User.Name
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
