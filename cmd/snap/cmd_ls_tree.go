package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLsTreeCmd(a *app) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls-tree [revision]",
		Short: "List the contents of a tree (default HEAD)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			rev := "HEAD"
			if len(args) > 0 {
				rev = args[0]
			}
			tree, err := r.ResolveTree(rev)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if recursive {
				files, err := r.FlattenTree(tree)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintf(out, "blob %s\t%s\n", f.Hash, f.Path)
				}
				return nil
			}

			tr, err := r.Store.GetTree(tree)
			if err != nil {
				return err
			}
			for _, e := range tr.Entries {
				fmt.Fprintf(out, "%s %s\t%s\n", e.Kind, e.Hash, e.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "recurse into subtrees and list files only")
	return cmd
}
