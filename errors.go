package yoyo

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrLockTimeout is returned when the advisory lock could not be
	// acquired within the configured timeout.
	ErrLockTimeout = errors.New("can't acquire migration lock: timed out")

	errDatabaseNotProvided = errors.New("database name is not provided")
)

// ConflictError reports two migrations sharing one identity.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("migration %s is defined more than once", e.ID)
}

// CycleError reports circular dependencies between migrations.
type CycleError struct {
	IDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependencies among migrations %s", strings.Join(e.IDs, ", "))
}

// UnknownDependencyError reports a dependency naming a migration that is
// not present in the current source set.
type UnknownDependencyError struct {
	ID      string
	Depends string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("migration %s depends on unknown migration %s", e.ID, e.Depends)
}

// MissingTargetError reports a target revision that is not in the source set.
type MissingTargetError struct {
	Target string
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("target migration %s does not exist", e.Target)
}

// StaleMigrationError reports applied migrations whose definitions are no
// longer present in the source set, so they can not be rolled back.
type StaleMigrationError struct {
	IDs []string
}

func (e *StaleMigrationError) Error() string {
	return fmt.Sprintf("can't roll back migrations with no source: %s", strings.Join(e.IDs, ", "))
}

// MigrationError wraps a failure inside one migration with its identity and
// the direction it was being run in.
type MigrationError struct {
	ID        string
	Direction Direction
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s (%s) failed: %v", e.ID, e.Direction, e.Err)
}

func (e *MigrationError) Cause() error { return e.Err }

func (e *MigrationError) Unwrap() error { return e.Err }
