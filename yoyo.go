package yoyo

import (
	"context"
	"sort"
	"time"
)

// The methods below are the stable programmatic interface: load migrations
// with ReadMigrations, connect with GetBackend, then drive the operations.

// ApplyMigrations applies every unapplied migration, restricted to target
// and its ancestors when target is non-empty, then runs any post-apply
// hooks if at least one migration was applied. It returns the number of
// migrations committed.
func (b *Backend) ApplyMigrations(ctx context.Context, migrations *MigrationList, target string) (int, error) {
	return NewExecutor(b, b.config).Run(ctx, OpApply, migrations, target)
}

// ApplyMigrationsOnly is ApplyMigrations without the post-apply hooks.
func (b *Backend) ApplyMigrationsOnly(ctx context.Context, migrations *MigrationList, target string) (int, error) {
	stripped := migrations.Filter(func(*Migration) bool { return true })
	stripped.PostApply = nil
	return NewExecutor(b, b.config).Run(ctx, OpApply, stripped, target)
}

// RollbackMigrations rolls back every applied migration, restricted to
// target and its descendants when target is non-empty.
func (b *Backend) RollbackMigrations(ctx context.Context, migrations *MigrationList, target string) (int, error) {
	return NewExecutor(b, b.config).Run(ctx, OpRollback, migrations, target)
}

// RollbackOne rolls back a single migration regardless of its dependents.
func (b *Backend) RollbackOne(ctx context.Context, migration *Migration) error {
	plan := Plan{{Migration: migration, Direction: DirectionBackward}}
	_, err := NewExecutor(b, b.config).RunPlan(ctx, plan, nil)
	return err
}

// ReapplyMigrations rolls back and re-applies the applied migrations,
// restricted to target and its descendants when target is non-empty.
// Post-apply hooks run after the forward phase.
func (b *Backend) ReapplyMigrations(ctx context.Context, migrations *MigrationList, target string) (int, error) {
	return NewExecutor(b, b.config).Run(ctx, OpReapply, migrations, target)
}

// MarkMigrations records migrations as applied without running their steps.
func (b *Backend) MarkMigrations(ctx context.Context, migrations *MigrationList, target string) (int, error) {
	return NewExecutor(b, b.config).Run(ctx, OpMark, migrations, target)
}

// UnmarkMigrations removes migrations from the applied-set without running
// their rollback steps.
func (b *Backend) UnmarkMigrations(ctx context.Context, migrations *MigrationList, target string) (int, error) {
	return NewExecutor(b, b.config).Run(ctx, OpUnmark, migrations, target)
}

// MigrationStatus describes one migration from the union of the source set
// and the applied-set.
type MigrationStatus struct {
	ID        string
	AppliedAt time.Time
	// Unknown marks identities present in the applied-set with no
	// source available.
	Unknown bool
}

// Status merges the source set with the applied-set. Reading status does
// not take the advisory lock.
func (b *Backend) Status(ctx context.Context, migrations *MigrationList) ([]MigrationStatus, error) {
	applied, err := b.ListApplied(ctx)
	if err != nil {
		return nil, err
	}

	appliedAt := make(map[string]time.Time, len(applied))
	for _, a := range applied {
		appliedAt[a.ID] = a.CTime
	}

	order, err := topologicalSort(migrations.Items())
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(order))
	for _, m := range order {
		statuses = append(statuses, MigrationStatus{ID: m.ID, AppliedAt: appliedAt[m.ID]})
		delete(appliedAt, m.ID)
	}

	var unknown []MigrationStatus
	for id, at := range appliedAt {
		unknown = append(unknown, MigrationStatus{ID: id, AppliedAt: at, Unknown: true})
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i].ID < unknown[j].ID })
	return append(statuses, unknown...), nil
}
