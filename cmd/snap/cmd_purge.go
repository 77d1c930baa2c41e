package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Drop deleted entries from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			n, err := r.PurgeIndex()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d deleted entries\n", n)
			return nil
		},
	}
}

func newCountObjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count-objects",
		Short: "Count stored objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			ids, err := r.Store.List()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d objects\n", len(ids))
			return nil
		},
	}
}
