package main

import (
	"context"

	"github.com/spf13/cobra"

	yoyo "github.com/coobas/yoyo-migrations"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "roll back applied migrations",
	Long: `Roll back applied migrations in reverse dependency order. With --revision
(-r) only the target migration and its dependents are rolled back. Applied
migrations whose source files are gone stop the rollback unless --force is
given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation("rollback", "rolled back", func(ctx context.Context, b *yoyo.Backend, migrations *yoyo.MigrationList) (int, error) {
			return b.RollbackMigrations(ctx, migrations, revision)
		})
	},
}
