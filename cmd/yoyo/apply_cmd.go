package main

import (
	"context"

	"github.com/spf13/cobra"

	yoyo "github.com/coobas/yoyo-migrations"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "apply unapplied migrations",
	Long: `Apply every migration not yet recorded in the applied-set, in dependency
order. With --revision (-r) only the target migration and its dependencies
are applied. Post-apply hooks run once after a successful non-empty run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation("apply", "applied", func(ctx context.Context, b *yoyo.Backend, migrations *yoyo.MigrationList) (int, error) {
			return b.ApplyMigrations(ctx, migrations, revision)
		})
	},
}
