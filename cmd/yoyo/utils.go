package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	yoyo "github.com/coobas/yoyo-migrations"
)

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// loadMigrations reads migrations from the configured source directories.
func loadMigrations() (*yoyo.MigrationList, error) {
	if len(settings.sources) == 0 {
		return nil, errors.New("no migration sources specified, use --source or the sources config key")
	}
	return yoyo.ReadMigrations(settings.sources...)
}

// getBackend connects to the configured database.
func getBackend(ctx context.Context) (*yoyo.Backend, error) {
	if settings.database == "" {
		return nil, errors.New("no database specified, use --database or the database config key")
	}
	return yoyo.GetBackend(ctx, settings.database, settings.config())
}

// promptConfirm asks for a per-migration decision on stdin.
func promptConfirm(m *yoyo.Migration, direction yoyo.Direction) yoyo.Decision {
	verb := "apply"
	if direction == yoyo.DirectionBackward {
		verb = "roll back"
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s %s? [Ynaq] ", verb, m.ID)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return yoyo.DecisionQuit
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "", "y", "yes":
			return yoyo.DecisionYes
		case "n", "no":
			return yoyo.DecisionNo
		case "a", "all":
			return yoyo.DecisionAll
		case "q", "quit":
			return yoyo.DecisionQuit
		}
	}
}

// runOperation wires the shared load/connect/execute/report flow of the
// database subcommands.
func runOperation(verb, past string, run func(ctx context.Context, b *yoyo.Backend, migrations *yoyo.MigrationList) (int, error)) error {
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

	n, err := run(ctx, b, migrations)
	if err != nil {
		return errors.Wrapf(err, "can't %s", verb)
	}

	fmt.Printf("%d %s %s\n", n, pluralize("migration", n), past)
	return nil
}
