package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	yoyo "github.com/coobas/yoyo-migrations"
)

// appFlags contains vars that can be specified only as flags
type appFlags struct {
	// configFile is the path to the INI configuration file
	configFile string
	// noConfigFile disables reading the configuration file
	noConfigFile bool
}

// migrateFlags holds variables used for flags that viper merges with the
// configuration file to provide settings for the migrator
var migrateFlags struct {
	database       string
	sources        []string
	batchMode      bool
	verbosity      int
	force          bool
	migrationTable string
	lockTimeout    time.Duration
}

var (
	flags *appFlags
	// settings is the merged configuration every subcommand reads
	settings *appSettings
	// revision narrows apply/rollback/reapply/mark/unmark to a target
	// migration and its transitive closure
	revision string
)

var rootCmd = &cobra.Command{
	Use:           "yoyo",
	Short:         "database schema migrations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags = &appFlags{}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file, default is yoyo.ini in the working directory or a parent")
	rootCmd.PersistentFlags().BoolVar(&flags.noConfigFile, "no-config-file", false, "don't read the config file")

	rootCmd.PersistentFlags().StringVarP(&migrateFlags.database, "database", "d", "", "database URI")
	rootCmd.PersistentFlags().StringSliceVarP(&migrateFlags.sources, "source", "s", nil, "migration source directory, repeatable")
	rootCmd.PersistentFlags().BoolVarP(&migrateFlags.batchMode, "batch", "b", false, "batch mode, don't prompt for confirmation")
	rootCmd.PersistentFlags().IntVarP(&migrateFlags.verbosity, "verbosity", "v", 0, "verbosity level 0-3")
	rootCmd.PersistentFlags().BoolVarP(&migrateFlags.force, "force", "f", false, "ignore step errors and skip applied migrations with no source on rollback")
	rootCmd.PersistentFlags().StringVarP(&migrateFlags.migrationTable, "migration-table", "t", "", "applied-set table name, default is _yoyo_migration")
	rootCmd.PersistentFlags().DurationVar(&migrateFlags.lockTimeout, "lock-timeout", 0, "advisory lock timeout, default is to wait")

	for _, cmd := range []*cobra.Command{applyCmd, rollbackCmd, reapplyCmd, markCmd, unmarkCmd} {
		cmd.Flags().StringVarP(&revision, "revision", "r", "", "target migration, restricts the operation to it and its transitive closure")
	}

	rootCmd.AddCommand(newCmd, applyCmd, rollbackCmd, reapplyCmd, markCmd, unmarkCmd, statusCmd)

	// only here flags are parsed and viper gives proper configuration,
	// so settings are assembled here instead of the main function
	cobra.OnInitialize(func() {
		vc := &viperConfigurator{viper: viper.GetViper(), flags: flags}
		v, err := vc.configure()
		if err != nil {
			exitWithError(err)
		}
		settings = settingsFromViper(v)
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitWithError(err)
	}
}

// appSettings is the merged view of the config file and the flags.
type appSettings struct {
	database          string
	sources           []string
	batchMode         bool
	verbosity         int
	force             bool
	migrationTable    string
	lockTimeout       time.Duration
	editor            string
	postCreateCommand string
}

func (s *appSettings) config() *yoyo.Config {
	c := &yoyo.Config{
		BatchMode:      s.batchMode,
		Verbosity:      s.verbosity,
		MigrationTable: s.migrationTable,
		LockTimeout:    s.lockTimeout,
		Force:          s.force,
	}
	if !s.batchMode {
		c.Confirm = promptConfirm
	}
	return c
}
