package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func createHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously saved revisions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := createAppFromCommand(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			revs, err := a.history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(revs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No revisions recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SAVED\tACCOUNT\tPAGES\tROLES")
			for _, rev := range revs {
				s := rev.Settings
				account := s.Account
				if account == "" {
					account = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
					rev.SavedAt.Format(time.RFC3339), account, s.VisibilityPages, strings.Join(s.Roles, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 10, "Maximum number of revisions to show (0 for all)")
	return cmd
}
