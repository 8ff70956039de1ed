package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hotjar/internal/settings"
)

const appName = "hotjar"

// backupPath is where export --save writes and import reads by default.
func backupPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, settings.ConfigName+".yml"))
}

func createExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := createAppFromCommand(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			b, err := s.YAML()
			if err != nil {
				return err
			}

			save, _ := cmd.Flags().GetBool("save")
			if !save {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			path, err := backupPath()
			if err != nil {
				return fmt.Errorf("failed to resolve backup path: %w", err)
			}
			if err := os.WriteFile(path, b, 0o600); err != nil {
				return fmt.Errorf("failed to write backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Saved"), path)
			return nil
		},
	}
	cmd.Flags().Bool("save", false, "Write to the user data directory instead of stdout")
	return cmd
}
