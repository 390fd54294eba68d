package main

import (
	"context"

	"github.com/spf13/cobra"

	yoyo "github.com/coobas/yoyo-migrations"
)

var unmarkCmd = &cobra.Command{
	Use:   "unmark",
	Short: "remove migrations from the applied-set without rolling them back",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation("unmark", "unmarked", func(ctx context.Context, b *yoyo.Backend, migrations *yoyo.MigrationList) (int, error) {
			return b.UnmarkMigrations(ctx, migrations, revision)
		})
	},
}
