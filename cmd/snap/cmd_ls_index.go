package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newLsIndexCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "ls-index",
		Short: "List index entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			idx, err := r.ReadIndex()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Kind", "Object", "Path", "State"})

			shown := 0
			for _, e := range idx.Entries() {
				if e.Deleted && !all {
					continue
				}
				state := "live"
				if e.Deleted {
					state = "deleted"
				}
				t.AppendRow(table.Row{e.Kind, e.Hash.Short(), e.Path, state})
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(index is empty)")
				return nil
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include deleted (tombstoned) entries")
	return cmd
}
