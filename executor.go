package yoyo

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Decision is the answer of a confirmation callback.
type Decision int

const (
	// DecisionYes runs the migration.
	DecisionYes = Decision(iota)
	// DecisionNo skips the migration.
	DecisionNo
	// DecisionAll runs the migration and stops asking.
	DecisionAll
	// DecisionQuit stops the plan without an error.
	DecisionQuit
)

// ConfirmFunc is consulted before each migration when the run is
// interactive.
type ConfirmFunc func(migration *Migration, direction Direction) Decision

type migrationState int

const (
	statePending = migrationState(iota)
	stateRunning
	stateCommitted
	stateAborted
)

func (s migrationState) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateCommitted:
		return "committed"
	case stateAborted:
		return "aborted"
	}
	return "pending"
}

// errSkipped signals that a migration's outer transaction was rolled back
// without failing the plan because a concurrent migrator applied it first.
var errSkipped = errors.New("migration skipped")

type savepointCounter int

func (c *savepointCounter) next() string {
	*c++
	return fmt.Sprintf("yoyo_%d", *c)
}

// Executor drives a resolved plan against the backend using the two-level
// transaction protocol: one outer transaction per migration, one savepoint
// per step.
type Executor struct {
	backend *Backend
	config  *Config
	log     *logrus.Logger
}

// NewExecutor returns an executor bound to the backend and configuration.
func NewExecutor(backend *Backend, config *Config) *Executor {
	return &Executor{
		backend: backend,
		config:  config,
		log:     config.logger(),
	}
}

// Run acquires the advisory lock, reads the applied-set, resolves the plan
// for the operation and executes it. The lock is released on every exit
// path. It returns the number of migrations committed.
func (e *Executor) Run(ctx context.Context, op Operation, migrations *MigrationList, target string) (int, error) {
	if err := e.backend.Lock(ctx); err != nil {
		return 0, err
	}
	// the deferred unlock must run even after cancellation
	defer e.backend.Unlock(context.Background())

	applied, err := e.backend.ListApplied(ctx)
	if err != nil {
		return 0, err
	}
	appliedIDs := make([]string, len(applied))
	for i, a := range applied {
		appliedIDs[i] = a.ID
	}

	plan, skipped, err := Resolve(migrations, appliedIDs, op, target, e.config.Force)
	if err != nil {
		return 0, err
	}
	for _, id := range skipped {
		e.log.Warnf("skipping %s: applied but no source is available", id)
	}

	return e.executeWithHooks(ctx, plan, migrations.PostApply)
}

// RunPlan executes an already resolved plan under the advisory lock. It is
// the entry point for callers that build plans themselves, such as
// RollbackOne.
func (e *Executor) RunPlan(ctx context.Context, plan Plan, postApply []*Migration) (int, error) {
	if err := e.backend.Lock(ctx); err != nil {
		return 0, err
	}
	defer e.backend.Unlock(context.Background())

	return e.executeWithHooks(ctx, plan, postApply)
}

func (e *Executor) executeWithHooks(ctx context.Context, plan Plan, postApply []*Migration) (int, error) {
	if len(plan) == 0 {
		e.log.Info("nothing to do")
		return 0, nil
	}

	if !e.backend.TransactionalDDL() {
		e.log.Warn("this database can't roll back DDL statements; a failed migration may leave the schema partially modified")
	}

	committed, forwardApplied, err := e.executePlan(ctx, plan)
	if err != nil {
		return committed, err
	}

	if forwardApplied > 0 {
		if err = e.runPostApply(ctx, postApply); err != nil {
			return committed, err
		}
	}
	return committed, nil
}

func (e *Executor) executePlan(ctx context.Context, plan Plan) (committed, forwardApplied int, err error) {
	interactive := !e.config.BatchMode && e.config.Confirm != nil
	for _, item := range plan {
		if interactive {
			switch e.config.Confirm(item.Migration, item.Direction) {
			case DecisionNo:
				continue
			case DecisionQuit:
				return committed, forwardApplied, nil
			case DecisionAll:
				interactive = false
			}
		}

		runErr := e.runMigration(ctx, item)
		if runErr == errSkipped {
			continue
		}
		if runErr != nil {
			abort := &MigrationError{
				ID:        item.Migration.ID,
				Direction: item.Direction,
				Err:       runErr,
			}
			if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
				return committed, forwardApplied, abort
			}
			if e.config.ContinueOnFailure {
				e.log.Error(abort.Error())
				continue
			}
			return committed, forwardApplied, abort
		}

		committed++
		if item.Direction == DirectionForward && !item.MarkOnly {
			forwardApplied++
		}
	}
	return committed, forwardApplied, nil
}

// runMigration executes one plan item inside an outer transaction. The
// applied-set mutation happens inside the same transaction, so the commit
// makes "steps ran" and "row recorded" atomic on engines with transactional
// DDL.
func (e *Executor) runMigration(ctx context.Context, item PlanItem) error {
	m, direction := item.Migration, item.Direction

	switch {
	case item.MarkOnly && direction == DirectionForward:
		e.log.Infof("marking %s applied", m.ID)
	case item.MarkOnly:
		e.log.Infof("unmarking %s", m.ID)
	case direction == DirectionForward:
		e.log.Infof("applying %s", m.ID)
	default:
		e.log.Infof("rolling back %s", m.ID)
	}
	e.log.Debugf("migration %s: %s", m.ID, stateRunning)

	if err := e.backend.begin(ctx); err != nil {
		return err
	}

	abort := func(cause error) error {
		if rbErr := e.backend.rollback(context.Background()); rbErr != nil {
			e.log.Errorf("can't roll back aborted migration %s: %v", m.ID, rbErr)
		}
		e.log.Debugf("migration %s: %s", m.ID, stateAborted)
		return cause
	}

	if direction == DirectionForward {
		// a concurrent migrator may have applied it since the plan was
		// resolved; treat the conflict as a warning, not an error
		isApplied, err := e.backend.isApplied(ctx, m.ID)
		if err != nil {
			return abort(err)
		}
		if isApplied {
			e.log.Warnf("%s is already applied, skipping", m.ID)
			return abort(errSkipped)
		}
	}

	if !item.MarkOnly {
		if err := e.runSteps(ctx, m, direction); err != nil {
			return abort(err)
		}
	}

	var err error
	if direction == DirectionForward {
		err = e.backend.recordApplied(ctx, m.ID)
	} else {
		err = e.backend.unrecordApplied(ctx, m.ID)
	}
	if err != nil {
		return abort(err)
	}

	if err = e.backend.commit(ctx); err != nil {
		return abort(err)
	}
	e.log.Debugf("migration %s: %s", m.ID, stateCommitted)
	return nil
}

// runSteps executes the migration's top-level steps, each under its own
// savepoint. The savepoint names come from a counter local to the
// migration.
func (e *Executor) runSteps(ctx context.Context, m *Migration, direction Direction) error {
	steps := m.Steps
	if direction == DirectionBackward {
		steps = reverseSteps(steps)
	}

	var counter savepointCounter
	var executed []int
	for i, step := range steps {
		// a pending cancellation aborts before the next step starts;
		// the in-flight step body itself is interrupted best-effort
		// through the context
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.runStep(ctx, step, direction, &counter); err != nil {
			if !e.backend.TransactionalDDL() && len(executed) > 0 {
				e.log.Warnf("steps %v of %s ran before the failure and any DDL they contain is already committed; attempting to undo them", executed, m.ID)
				for j := len(executed) - 1; j >= 0; j-- {
					undo := steps[executed[j]-1]
					if undoErr := e.runStepBody(ctx, undo, direction.reverse()); undoErr != nil {
						e.log.Warnf("can't undo step %d of %s: %v", executed[j], m.ID, undoErr)
					}
				}
			}
			return errors.Wrapf(err, "step %d", i+1)
		}
		executed = append(executed, i+1)
	}
	return nil
}

func (e *Executor) runStep(ctx context.Context, step Step, direction Direction, counter *savepointCounter) error {
	name := counter.next()
	if err := e.backend.savepoint(ctx, name); err != nil {
		return err
	}

	err := e.runStepBody(ctx, step, direction)
	if err == nil {
		if relErr := e.backend.releaseSavepoint(ctx, name); relErr != nil {
			// an implicit DDL commit releases savepoints on engines
			// without transactional DDL
			if e.backend.TransactionalDDL() {
				return relErr
			}
			e.log.Debugf("can't release savepoint %s: %v", name, relErr)
		}
		return nil
	}

	if step.IgnoreErrors.covers(direction) || e.config.Force {
		e.log.Warnf("ignored error in step: %v", err)
		if rbErr := e.backend.rollbackToSavepoint(ctx, name); rbErr != nil {
			if e.backend.TransactionalDDL() {
				return rbErr
			}
			e.log.Debugf("can't roll back to savepoint %s: %v", name, rbErr)
		}
		return nil
	}
	return err
}

// runStepBody executes a step body. Group children run in order under the
// group's savepoint; the group's ignore-errors policy governs them as one
// unit.
func (e *Executor) runStepBody(ctx context.Context, step Step, direction Direction) error {
	if step.isGroup() {
		children := step.Children
		if direction == DirectionBackward {
			children = reverseSteps(children)
		}
		for _, child := range children {
			if err := e.runStepBody(ctx, child, direction); err != nil {
				return err
			}
		}
		return nil
	}

	body := step.body(direction)
	switch {
	case body.Fn != nil:
		return body.Fn(ctx, e.backend.Connection())
	case body.SQL != "":
		return e.backend.execute(ctx, body.SQL)
	}
	return nil
}

// runPostApply executes the post-apply hooks once, after a successful
// forward phase. Hooks never touch the applied-set; a failing hook rolls
// back only its own transaction.
func (e *Executor) runPostApply(ctx context.Context, hooks []*Migration) error {
	for _, hook := range hooks {
		e.log.Infof("running post-apply hook %s", hook.ID)
		if err := e.backend.begin(ctx); err != nil {
			return err
		}
		if err := e.runSteps(ctx, hook, DirectionForward); err != nil {
			if rbErr := e.backend.rollback(context.Background()); rbErr != nil {
				e.log.Errorf("can't roll back post-apply hook %s: %v", hook.ID, rbErr)
			}
			return &MigrationError{ID: hook.ID, Direction: DirectionForward, Err: err}
		}
		if err := e.backend.commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

func reverseSteps(steps []Step) []Step {
	reversed := make([]Step, len(steps))
	for i, s := range steps {
		reversed[len(steps)-1-i] = s
	}
	return reversed
}
