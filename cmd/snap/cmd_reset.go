package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the repository (objects, index and HEAD); the working tree is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("reset removes every object and commit; rerun with --force")
			}
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			if err := r.Reset(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", r.SnapDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm removal")
	return cmd
}
