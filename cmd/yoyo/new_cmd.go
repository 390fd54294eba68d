package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	yoyo "github.com/coobas/yoyo-migrations"
)

var newCmd = &cobra.Command{
	Use:   "new [message]",
	Short: "create a new migration",
	Long: `Create a migration file pair in the first source directory. The depends
header is pre-populated with the current heads of the dependency graph.
The editor config key opens the new file for editing; post_create_command
runs afterwards with the created file paths appended.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(settings.sources) == 0 {
			return errors.New("no migration sources specified, use --source or the sources config key")
		}

		migrations, err := yoyo.ReadMigrations(settings.sources...)
		if err != nil {
			return err
		}

		message := strings.Join(args, " ")
		fpaths, err := yoyo.GenerateMigration(settings.sources[0], message, migrations)
		if err != nil {
			return errors.Wrap(err, "can't generate migration")
		}

		if settings.editor != "" && !settings.batchMode {
			if err = runCommand(settings.editor, fpaths[0]); err != nil {
				return errors.Wrap(err, "can't open editor")
			}
		}
		if settings.postCreateCommand != "" {
			if err = runCommand(settings.postCreateCommand, fpaths...); err != nil {
				return errors.Wrap(err, "post create command failed")
			}
		}

		for _, fpath := range fpaths {
			fmt.Printf("created %s\n", fpath)
		}
		return nil
	},
}

func runCommand(command string, fpaths ...string) error {
	parts := strings.Fields(command)
	parts = append(parts, fpaths...)
	c := exec.Command(parts[0], parts[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
