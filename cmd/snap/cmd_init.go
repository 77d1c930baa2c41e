package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/snap/pkg/repo"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty snap repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Dir
			if len(args) > 0 {
				path = args[0]
				if !filepath.IsAbs(path) {
					path = filepath.Join(a.cfg.Dir, path)
				}
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			// Ensure the target directory exists.
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			r, err := repo.Init(abs, repo.InitOptions{
				Objects: a.objectOptions(),
				Author:  a.cfg.Author,
			}, repo.WithLogger(a.logger))
			if err != nil {
				return err
			}

			opts := r.Store.Options()
			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty snap repository in %s (%s, %s)\n",
				r.SnapDir+string(filepath.Separator), opts.Compression, opts.Hash)
			return nil
		},
	}
}
