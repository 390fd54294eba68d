package yoyo

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMigrationTable records the applied-set.
	DefaultMigrationTable = "_yoyo_migration"
	// DefaultLockTable backs the advisory lock on engines without one.
	DefaultLockTable = "_yoyo_lock"
)

// Config collects the knobs of a migrator run. The zero value is usable;
// empty table names fall back to the defaults.
type Config struct {
	// BatchMode suppresses the per-migration confirmation prompt.
	BatchMode bool
	// Verbosity ranges 0-3 and maps onto error/warning/info/debug logging.
	Verbosity int
	// MigrationTable is the applied-set table name.
	MigrationTable string
	// LockTable is the lock table name.
	LockTable string
	// LockTimeout bounds advisory lock acquisition. Zero means wait.
	LockTimeout time.Duration
	// Confirm is consulted before each migration when not in batch mode.
	Confirm ConfirmFunc
	// Force suppresses step errors and lets an untargeted rollback, unmark
	// or reapply proceed when applied migrations have no source; those are
	// skipped with a warning, not rolled back.
	Force bool
	// ContinueOnFailure keeps executing the plan after a migration aborts.
	ContinueOnFailure bool
	// Logger overrides the logger built from Verbosity.
	Logger *logrus.Logger
}

func (c *Config) migrationTable() string {
	if c == nil || c.MigrationTable == "" {
		return DefaultMigrationTable
	}
	return c.MigrationTable
}

func (c *Config) lockTable() string {
	if c == nil || c.LockTable == "" {
		return DefaultLockTable
	}
	return c.LockTable
}

var verbosityLevels = []logrus.Level{
	logrus.ErrorLevel,
	logrus.WarnLevel,
	logrus.InfoLevel,
	logrus.DebugLevel,
}

func (c *Config) logger() *logrus.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	log := logrus.New()
	verbosity := 0
	if c != nil {
		verbosity = c.Verbosity
	}
	if verbosity < 0 {
		verbosity = 0
	}
	if verbosity >= len(verbosityLevels) {
		verbosity = len(verbosityLevels) - 1
	}
	log.SetLevel(verbosityLevels[verbosity])
	return log
}
