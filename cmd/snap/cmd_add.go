package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <files...>",
		Short: "Store files and record them in the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			hashes, err := r.Add(args)
			if err != nil {
				return err
			}
			for i, h := range hashes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", h, args[i])
			}
			return nil
		},
	}
}
