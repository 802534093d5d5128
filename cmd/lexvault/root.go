package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lexvault/internal/config"
)

type globalOptions struct {
	jsonOutput bool
	logLevel   string
	dataDir    string
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "lexvault",
		Short:         "Lexvault is a content-addressed document store for case files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(opts.logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			if dir := strings.TrimSpace(opts.dataDir); dir != "" {
				cfg.DataDir = dir
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (overrides data_dir)")

	jsonOutput := &opts.jsonOutput
	cmd.AddCommand(
		newUploadCmd(cfg, jsonOutput),
		newShowCmd(cfg, jsonOutput),
		newFindHashCmd(cfg, jsonOutput),
		newGetCmd(cfg),
		newListCmd(cfg, jsonOutput),
		newUpdateCmd(cfg, jsonOutput),
		newRemoveCmd(cfg, jsonOutput),
		newStatsCmd(cfg, jsonOutput),
		newCleanupCmd(cfg, jsonOutput),
		newVerifyCmd(cfg, jsonOutput),
		newExportCmd(cfg),
		newImportCmd(cfg, jsonOutput),
		newMigrateCmd(cfg, jsonOutput),
		newConfigCmd(cfg),
	)

	return cmd
}
