package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func createRolesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the roles that can be selected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := createAppFromCommand(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			available, err := a.store.ListRoles(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL")
			for _, r := range available {
				fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Label)
			}
			return tw.Flush()
		},
	}
}
