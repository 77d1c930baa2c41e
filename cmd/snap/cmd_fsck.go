package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFsckCmd(a *app) *cobra.Command {
	var showDangling bool

	cmd := &cobra.Command{
		Use:   "fsck",
		Short: "Verify object integrity and reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}

			report, err := r.Fsck()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, ref := range report.Missing {
				fmt.Fprintf(out, "missing %s %s\n", ref.Kind, ref.Hash)
			}
			for _, ref := range report.Broken {
				fmt.Fprintf(out, "broken %s %s\n", ref.Kind, ref.Hash)
			}
			for _, h := range report.Corrupt {
				fmt.Fprintf(out, "corrupt %s\n", h)
			}
			if showDangling {
				for _, h := range report.Dangling {
					fmt.Fprintf(out, "dangling %s\n", h)
				}
			}

			if !report.OK() {
				return fmt.Errorf("fsck: %d missing, %d broken, %d corrupt object(s)",
					len(report.Missing), len(report.Broken), len(report.Corrupt))
			}
			fmt.Fprintf(out, "ok: %d object(s), %d reachable, %d dangling\n",
				report.Objects, report.Reachable, len(report.Dangling))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDangling, "dangling", false, "list unreferenced objects")
	return cmd
}
