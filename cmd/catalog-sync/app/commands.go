// Package app provides the commands of catalog-sync.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opendata-sync/catalog-sync/internal/versions"
)

// rootLogger is installed by the root command before any subcommand runs
var (
	rootLogger  = logr.Discard()
	syncLogger  = func() {}
	verboseMode bool
)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "catalog-sync",
		DisableAutoGenTag: true,
		Short:             "Synchronize a CKAN catalog into a document store",
		Long: `catalog-sync reconciles the packages and resources of a CKAN catalog with the items
of a MongoDB or PostgreSQL document store: new items are inserted, changed items updated,
unchanged items skipped and items that disappeared from the catalog removed.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			verboseMode = viper.GetBool("verbose")
			rootLogger, syncLogger = setupLogging(verboseMode)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log progress per package and resource")
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		slog.Error("Error binding verbose flag", "error", err)
	}

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs cmd and flushes the logger afterwards. Cobra skips post-run hooks when a
// command fails, so the flush cannot live there.
func Execute(cmd *cobra.Command) error {
	defer func() { syncLogger() }()
	return cmd.Execute()
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.Get()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "catalog-sync %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
