package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/storefront"
	"github.com/dmitrymomot/storefront/internal/config"
	"github.com/dmitrymomot/storefront/internal/db/migrations"
	"github.com/dmitrymomot/storefront/pkg/db"
	"github.com/dmitrymomot/storefront/pkg/job"
)

func migrateCmd() *cobra.Command {
	var skipJobs bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  `Apply the storefront schema migrations, then the job queue migrations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}

			log, flush := storefront.NewLogger(cfg.Log, os.Stdout)
			defer flush()

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg.DB)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool, migrations.FS, cfg.DB.MigrationsTable, log); err != nil {
				return err
			}
			if skipJobs {
				return nil
			}
			return job.Migrate(ctx, pool, log)
		},
	}

	cmd.Flags().BoolVar(&skipJobs, "skip-jobs", false, "skip the job queue migrations")

	return cmd
}
