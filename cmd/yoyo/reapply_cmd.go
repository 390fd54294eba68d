package main

import (
	"context"

	"github.com/spf13/cobra"

	yoyo "github.com/coobas/yoyo-migrations"
)

var reapplyCmd = &cobra.Command{
	Use:   "reapply",
	Short: "roll back and re-apply migrations",
	Long: `Roll back applied migrations and apply them again. With --revision (-r)
the operation is restricted to the target migration and its dependents.
Post-apply hooks run after the forward phase.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation("reapply", "reapplied", func(ctx context.Context, b *yoyo.Backend, migrations *yoyo.MigrationList) (int, error) {
			n, err := b.ReapplyMigrations(ctx, migrations, revision)
			// every reapplied migration is counted twice, once per direction
			return n / 2, err
		})
	},
}
