package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hotjar/internal/cache"
	"hotjar/internal/config"
	"hotjar/internal/history"
	"hotjar/internal/notify"
	"hotjar/internal/roles"
	"hotjar/internal/settings"
)

// createRootCommand creates the main command that shows help by default.
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hotjarsettings",
		Short:         "Inspect and edit the hotjar.settings configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().String("backend", "", "Storage backend (overrides STORAGE_BACKEND)")
	rootCmd.PersistentFlags().String("dir", "", "Directory for the file backend (overrides STORAGE_DIR)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		createShowCommand(),
		createExportCommand(),
		createImportCommand(),
		createRolesCommand(),
		createSchemaCommand(),
		createHistoryCommand(),
	)
	return rootCmd
}

type app struct {
	store   *settings.CacheStore
	editor  *settings.Editor
	history *history.Recorder
	close   func()
}

// createAppFromCommand loads configuration, applies flag overrides and opens
// the configured store.
func createAppFromCommand(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.Storage.Dir = dir
	}

	c, err := cache.MakeCache(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	store := settings.NewCacheStore(c, roles.NewStaticRegistry(cfg.Roles...))
	recorder := history.NewRecorder(c)
	a := &app{
		store:   store,
		editor:  settings.NewEditor(store, notify.FromConfig(cfg), recorder),
		history: recorder,
		close:   func() {},
	}
	if closer, ok := c.(io.Closer); ok {
		a.close = func() { _ = closer.Close() }
	}
	return a, nil
}
