package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/opendata-sync/catalog-sync/database"
)

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back database migrations",
		Long: `Roll back the given number of migrations of the postgres store schema.
--num-steps is required; rolling back drops the items stored by earlier runs.`,
		RunE: runMigrateDown,
	}
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	steps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	if steps == 0 {
		return fmt.Errorf("--num-steps must be greater than zero for down migrations")
	}

	connString, target, err := migrationTarget(cmd)
	if err != nil {
		return err
	}

	slog.Warn("About to roll back migrations", "target", target, "steps", steps)
	ok, err := confirm(cmd, "This may delete data. Continue?")
	if err != nil || !ok {
		return err
	}

	if err := database.MigrateDown(connString, int(steps)); err != nil {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}

	logVersion(connString)
	return nil
}
