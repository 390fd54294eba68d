package yoyo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

// postApplyPrefix marks hook migrations segregated from the normal set.
const postApplyPrefix = "post-apply"

// IgnoreErrors tells the executor which directions of a step may fail
// without aborting the migration.
type IgnoreErrors int

const (
	IgnoreNone = IgnoreErrors(iota)
	IgnoreApply
	IgnoreRollback
	IgnoreAll
)

func (ie IgnoreErrors) String() string {
	switch ie {
	case IgnoreApply:
		return "apply"
	case IgnoreRollback:
		return "rollback"
	case IgnoreAll:
		return "all"
	}
	return "none"
}

// covers reports whether errors in the given direction are suppressed.
func (ie IgnoreErrors) covers(d Direction) bool {
	switch ie {
	case IgnoreAll:
		return true
	case IgnoreApply:
		return d == DirectionForward
	case IgnoreRollback:
		return d == DirectionBackward
	}
	return false
}

// IgnoreErrorsFromString parses an ignore-errors policy.
func IgnoreErrorsFromString(s string) (IgnoreErrors, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return IgnoreNone, nil
	case "apply":
		return IgnoreApply, nil
	case "rollback":
		return IgnoreRollback, nil
	case "all":
		return IgnoreAll, nil
	default:
		return IgnoreNone, errors.Errorf("can't parse ignore-errors policy from string %s", s)
	}
}

// StepFunc is a callable step body. It receives the backend's live
// connection and must not close it.
type StepFunc func(ctx context.Context, conn *sql.Conn) error

// StepBody is one side of a step: a SQL statement or a callable. The zero
// value is a no-op, which is how steps without a rollback are represented.
type StepBody struct {
	SQL string
	Fn  StepFunc
}

func (sb StepBody) empty() bool {
	return sb.SQL == "" && sb.Fn == nil
}

// Step is the smallest executable unit within a migration. A step is either
// a statement pair, a callable pair, or a group of child steps sharing one
// savepoint and one ignore-errors policy.
type Step struct {
	Apply        StepBody
	Rollback     StepBody
	Children     []Step
	IgnoreErrors IgnoreErrors
}

func (s Step) isGroup() bool { return len(s.Children) > 0 }

// body returns the step body for the given direction.
func (s Step) body(d Direction) StepBody {
	if d == DirectionForward {
		return s.Apply
	}
	return s.Rollback
}

// NewSQLStep builds a step from an apply statement and an optional rollback
// statement.
func NewSQLStep(apply, rollback string, ignoreErrors IgnoreErrors) Step {
	return Step{
		Apply:        StepBody{SQL: apply},
		Rollback:     StepBody{SQL: rollback},
		IgnoreErrors: ignoreErrors,
	}
}

// NewFuncStep builds a step from callables. rollback may be nil.
func NewFuncStep(apply, rollback StepFunc, ignoreErrors IgnoreErrors) Step {
	return Step{
		Apply:        StepBody{Fn: apply},
		Rollback:     StepBody{Fn: rollback},
		IgnoreErrors: ignoreErrors,
	}
}

// NewStepGroup builds a group step. The children run in order under the
// group's savepoint, and the group's policy decides whether their errors
// abort the migration.
func NewStepGroup(ignoreErrors IgnoreErrors, children ...Step) Step {
	return Step{
		Children:     children,
		IgnoreErrors: ignoreErrors,
	}
}

// Migration is the read-only in-memory representation of one migration
// script: its identity, ordered steps and declared dependencies.
type Migration struct {
	ID      string
	Path    string
	Depends []string
	Steps   []Step
	// Metadata holds free-form header fields such as author or message.
	Metadata map[string]string
}

// IsPostApply reports whether this is a post-apply hook migration. Hook
// migrations are never planned and never recorded in the applied-set.
func (m *Migration) IsPostApply() bool {
	return strings.HasPrefix(m.ID, postApplyPrefix)
}

// MigrationList is a collection of migrations with unique identities.
// Post-apply hooks are kept apart from the plannable items.
type MigrationList struct {
	items     []*Migration
	index     map[string]*Migration
	PostApply []*Migration
}

// NewMigrationList builds a list from the given migrations, segregating
// post-apply hooks and rejecting duplicate identities.
func NewMigrationList(migrations ...*Migration) (*MigrationList, error) {
	l := &MigrationList{index: map[string]*Migration{}}
	for _, m := range migrations {
		if err := l.Append(m); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Append adds a migration, returning a ConflictError on a duplicate
// identity.
func (l *MigrationList) Append(m *Migration) error {
	if m.IsPostApply() {
		l.PostApply = append(l.PostApply, m)
		return nil
	}
	if _, ok := l.index[m.ID]; ok {
		return &ConflictError{ID: m.ID}
	}
	l.index[m.ID] = m
	l.items = append(l.items, m)
	return nil
}

// Items returns the plannable migrations in insertion order.
func (l *MigrationList) Items() []*Migration {
	return l.items
}

// Get returns the migration with the given identity, or nil.
func (l *MigrationList) Get(id string) *Migration {
	return l.index[id]
}

// Len returns the number of plannable migrations.
func (l *MigrationList) Len() int {
	return len(l.items)
}

// Filter returns a new list holding the migrations the predicate accepts.
// Post-apply hooks are carried over unchanged.
func (l *MigrationList) Filter(pred func(*Migration) bool) *MigrationList {
	out := &MigrationList{index: map[string]*Migration{}, PostApply: l.PostApply}
	for _, m := range l.items {
		if pred(m) {
			out.index[m.ID] = m
			out.items = append(out.items, m)
		}
	}
	return out
}
