package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hotjar/internal/settings"
)

func createImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.yml]",
		Short: "Validate and save settings from YAML",
		Long:  "Validate and save settings from YAML. Without a file the backup written by export --save is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				var err error
				if path, err = backupPath(); err != nil {
					return fmt.Errorf("failed to resolve backup path: %w", err)
				}
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			incoming, err := settings.ParseYAML(b)
			if err != nil {
				return err
			}

			a, err := createAppFromCommand(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			available, err := a.store.ListRoles(ctx)
			if err != nil {
				return err
			}
			s, err := settings.Validate(settings.InputFromSettings(incoming), available)
			if err != nil {
				var verr *settings.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("%s: %s", verr.Field, verr.Message)
				}
				return err
			}
			if dropped := len(incoming.Roles) - len(s.Roles); dropped > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("Ignored %d unknown or duplicate role(s)", dropped))
			}
			if err := a.editor.Submit(ctx, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s from %s\n", color.GreenString("Imported"), settings.ConfigName, path)
			return nil
		},
	}
}
