package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opendata-sync/catalog-sync/internal/config"
	"github.com/opendata-sync/catalog-sync/internal/status"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the statistics of the last run",
		Long:  `Print the statistics of the last run as JSON, read from the configured statusDir.`,
		RunE:  runStatus,
	}
	cmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	if err := cmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.StatusDir == "" {
		return errors.New("statusDir is not configured")
	}

	stats, err := status.NewFileStatusPersistence(cfg.StatusDir).LoadStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load status: %w", err)
	}
	if stats == nil {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "no run recorded yet")
		return err
	}

	output, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format status: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return err
}
