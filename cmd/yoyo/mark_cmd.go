package main

import (
	"context"

	"github.com/spf13/cobra"

	yoyo "github.com/coobas/yoyo-migrations"
)

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "mark migrations as applied without running them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation("mark", "marked", func(ctx context.Context, b *yoyo.Backend, migrations *yoyo.MigrationList) (int, error) {
			return b.MarkMigrations(ctx, migrations, revision)
		})
	},
}
