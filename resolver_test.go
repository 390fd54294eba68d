package yoyo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planIDs(plan Plan) []string {
	out := make([]string, len(plan))
	for i, item := range plan {
		out[i] = item.Migration.ID
	}
	return out
}

func diamondList(t *testing.T) *MigrationList {
	list, err := NewMigrationList(
		mkMigration("A"),
		mkMigration("B", "A"),
		mkMigration("C", "A"),
		mkMigration("D", "B", "C"),
	)
	require.NoError(t, err)
	return list
}

func Test_Resolve_Apply(t *testing.T) {
	plan, skipped, err := Resolve(diamondList(t), nil, OpApply, "", false)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, []string{"A", "B", "C", "D"}, planIDs(plan))
	for _, item := range plan {
		assert.Equal(t, DirectionForward, item.Direction)
		assert.False(t, item.MarkOnly)
	}
}

func Test_Resolve_Apply_SkipsApplied(t *testing.T) {
	plan, _, err := Resolve(diamondList(t), []string{"A", "B"}, OpApply, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, planIDs(plan))
}

func Test_Resolve_Apply_Target(t *testing.T) {
	// B and its ancestors only
	plan, _, err := Resolve(diamondList(t), nil, OpApply, "B", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, planIDs(plan))
}

func Test_Resolve_Apply_Idempotent(t *testing.T) {
	plan, _, err := Resolve(diamondList(t), []string{"A", "B", "C", "D"}, OpApply, "", false)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func Test_Resolve_Apply_ToleratesStaleApplied(t *testing.T) {
	plan, _, err := Resolve(diamondList(t), []string{"099"}, OpApply, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, planIDs(plan))
}

func Test_Resolve_Rollback(t *testing.T) {
	plan, _, err := Resolve(diamondList(t), []string{"A", "B", "C", "D"}, OpRollback, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "B", "A"}, planIDs(plan))
	for _, item := range plan {
		assert.Equal(t, DirectionBackward, item.Direction)
	}
}

func Test_Resolve_Rollback_Target(t *testing.T) {
	// B and its dependents only
	plan, _, err := Resolve(diamondList(t), []string{"A", "B", "C", "D"}, OpRollback, "B", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B"}, planIDs(plan))
}

func Test_Resolve_Rollback_OnlyApplied(t *testing.T) {
	plan, _, err := Resolve(diamondList(t), []string{"A", "B"}, OpRollback, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, planIDs(plan))
}

func Test_Resolve_Rollback_StaleApplied(t *testing.T) {
	_, _, err := Resolve(diamondList(t), []string{"A", "099"}, OpRollback, "", false)
	require.Error(t, err)
	staleErr, ok := err.(*StaleMigrationError)
	require.True(t, ok)
	assert.Equal(t, []string{"099"}, staleErr.IDs)

	// force skips them instead
	plan, skipped, err := Resolve(diamondList(t), []string{"A", "099"}, OpRollback, "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"099"}, skipped)
	assert.Equal(t, []string{"A"}, planIDs(plan))
}

func Test_Resolve_Rollback_MissingTarget(t *testing.T) {
	_, _, err := Resolve(diamondList(t), []string{"099"}, OpRollback, "099", false)
	require.Error(t, err)
	assert.IsType(t, &MissingTargetError{}, err)
}

func Test_Resolve_Reapply(t *testing.T) {
	plan, _, err := Resolve(diamondList(t), []string{"A", "B", "C", "D"}, OpReapply, "B", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B", "B", "D"}, planIDs(plan))
	assert.Equal(t, DirectionBackward, plan[0].Direction)
	assert.Equal(t, DirectionBackward, plan[1].Direction)
	assert.Equal(t, DirectionForward, plan[2].Direction)
	assert.Equal(t, DirectionForward, plan[3].Direction)
}

func Test_Resolve_MarkUnmark(t *testing.T) {
	plan, _, err := Resolve(diamondList(t), nil, OpMark, "B", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, planIDs(plan))
	for _, item := range plan {
		assert.True(t, item.MarkOnly)
		assert.Equal(t, DirectionForward, item.Direction)
	}

	plan, _, err = Resolve(diamondList(t), []string{"A", "B", "C", "D"}, OpUnmark, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "B", "A"}, planIDs(plan))
	for _, item := range plan {
		assert.True(t, item.MarkOnly)
		assert.Equal(t, DirectionBackward, item.Direction)
	}
}

func Test_Resolve_UnknownDependency(t *testing.T) {
	list, err := NewMigrationList(mkMigration("A", "ghost"))
	require.NoError(t, err)

	_, _, err = Resolve(list, nil, OpApply, "", false)
	require.Error(t, err)
	depErr, ok := err.(*UnknownDependencyError)
	require.True(t, ok)
	assert.Equal(t, "A", depErr.ID)
	assert.Equal(t, "ghost", depErr.Depends)
}

func Test_Resolve_Cycle(t *testing.T) {
	list, err := NewMigrationList(
		mkMigration("a", "b"),
		mkMigration("b", "a"),
	)
	require.NoError(t, err)

	_, _, err = Resolve(list, nil, OpApply, "", false)
	assert.IsType(t, &CycleError{}, err)
}
