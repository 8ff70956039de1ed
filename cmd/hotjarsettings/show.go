package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hotjar/internal/roles"
	"hotjar/internal/settings"
)

func createShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := createAppFromCommand(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			s, err := a.store.Load(ctx)
			if err != nil {
				return err
			}
			available, err := a.store.ListRoles(ctx)
			if err != nil {
				return err
			}
			printSettings(cmd, s, roles.Names(available))
			return nil
		},
	}
}

var pageModes = map[settings.PageVisibility]string{
	settings.PagesExceptListed: "every page except the listed pages",
	settings.PagesOnlyListed:   "the listed pages only",
	settings.PagesPHP:          "legacy PHP snippet (not evaluated)",
}

var roleModes = map[settings.RoleVisibility]string{
	settings.RolesOnlySelected:   "the selected roles only",
	settings.RolesExceptSelected: "every role except the selected ones",
}

func printSettings(cmd *cobra.Command, s settings.Settings, names map[string]string) {
	out := cmd.OutOrStdout()
	label := color.New(color.FgCyan).SprintFunc()

	account := s.Account
	if account == "" {
		account = color.YellowString("(not set)")
	}
	fmt.Fprintf(out, "%s %s\n", label("Hotjar ID:"), account)
	fmt.Fprintf(out, "%s %s\n", label("Pages:"), pageModes[s.VisibilityPages])
	for _, page := range settings.SplitPages(s.Pages) {
		fmt.Fprintf(out, "  %s\n", page)
	}
	fmt.Fprintf(out, "%s %s\n", label("Roles:"), roleModes[s.VisibilityRoles])
	if len(s.Roles) == 0 {
		fmt.Fprintln(out, "  (none selected, every user is tracked)")
	}
	for _, id := range s.Roles {
		name, ok := names[id]
		if !ok {
			name = color.RedString("unknown role")
		}
		fmt.Fprintf(out, "  %s (%s)\n", id, name)
	}
	if strings.TrimSpace(s.Account) == "" {
		fmt.Fprintln(out, color.YellowString("The snippet is not added until a Hotjar ID is set."))
	}
}
