package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const printTimestampFormat = "2006-01-02 15:04:05"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "show the state of every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		migrations, err := loadMigrations()
		if err != nil {
			return err
		}

		ctx := context.Background()
		b, err := getBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		statuses, err := b.Status(ctx, migrations)
		if err != nil {
			return errors.Wrap(err, "can't get migrations status")
		}

		if len(statuses) == 0 {
			fmt.Println("no migrations exist yet")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Migration", "Applied at"})
		table.SetAutoWrapText(false)
		for _, status := range statuses {
			appliedAt := "-"
			if status.AppliedAt != (time.Time{}) {
				appliedAt = status.AppliedAt.Format(printTimestampFormat)
			}
			id := status.ID
			if status.Unknown {
				id += " (no source)"
			}
			table.Append([]string{id, appliedAt})
		}
		table.Render()

		return nil
	},
}
