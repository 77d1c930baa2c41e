package main

import "github.com/spf13/cobra"

func newCatFileCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "cat-file <object>",
		Short: "Print the content of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			h, err := r.Store.ResolvePrefix(args[0])
			if err != nil {
				return err
			}
			var data []byte
			if raw {
				data, err = r.Store.ReadStored(h)
			} else {
				data, err = r.Store.Get(h)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the stored (possibly compressed) bytes")
	return cmd
}
