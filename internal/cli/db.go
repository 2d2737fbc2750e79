package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-intake/internal/app"
	"github.com/joseph-ayodele/claims-intake/internal/common"
	"github.com/joseph-ayodele/claims-intake/internal/repository"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the SQL claims ledger (SUBMISSION_SINK=sqlite|postgres)",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply ledger migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedgerDB(cmd, func(db *repository.DB) error {
			if err := repository.RunMigrations(cmd.Context(), db.SQL, db.Dialect); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", db.Dialect)
			return nil
		})
	},
}

var dbHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Ping the ledger database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedgerDB(cmd, func(db *repository.DB) error {
			start := time.Now()
			if err := db.HealthCheck(cmd.Context(), 3*time.Second); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DB health OK (%s, %dms)\n", db.Dialect, time.Since(start).Milliseconds())
			return nil
		})
	},
}

func withLedgerDB(cmd *cobra.Command, fn func(*repository.DB) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Submission.Sink != common.SinkSQLite && cfg.Submission.Sink != common.SinkPostgres {
		return common.NewAppError("CONFIG_ERROR", "SUBMISSION_SINK must be sqlite or postgres, got "+cfg.Submission.Sink, common.ErrInvalidInput)
	}
	db, err := app.OpenLedgerDB(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close(logger)
	return fn(db)
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd, dbHealthCmd)
	rootCmd.AddCommand(dbCmd)
}
