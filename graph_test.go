package yoyo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkMigration(id string, depends ...string) *Migration {
	return &Migration{ID: id, Depends: depends}
}

func ids(migrations []*Migration) []string {
	out := make([]string, len(migrations))
	for i, m := range migrations {
		out[i] = m.ID
	}
	return out
}

func Test_TopologicalSort_Linear(t *testing.T) {
	sorted, err := topologicalSort([]*Migration{
		mkMigration("003", "002"),
		mkMigration("001"),
		mkMigration("002", "001"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "002", "003"}, ids(sorted))
}

func Test_TopologicalSort_DiamondTieBreak(t *testing.T) {
	// B and C are not ordered relative to each other, so identity order
	// must decide
	sorted, err := topologicalSort([]*Migration{
		mkMigration("D", "B", "C"),
		mkMigration("C", "A"),
		mkMigration("B", "A"),
		mkMigration("A"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids(sorted))
}

func Test_TopologicalSort_IndependentIdentityOrder(t *testing.T) {
	sorted, err := topologicalSort([]*Migration{
		mkMigration("c"),
		mkMigration("a"),
		mkMigration("b"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(sorted))
}

func Test_TopologicalSort_Cycle(t *testing.T) {
	_, err := topologicalSort([]*Migration{
		mkMigration("a", "c"),
		mkMigration("b", "a"),
		mkMigration("c", "b"),
	})
	require.Error(t, err)
	cycleErr, ok := err.(*CycleError)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycleErr.IDs)
}

func Test_TopologicalSort_IgnoresExternalDepends(t *testing.T) {
	sorted, err := topologicalSort([]*Migration{
		mkMigration("b", "external"),
		mkMigration("a"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(sorted))
}

func Test_Ancestors(t *testing.T) {
	list, err := NewMigrationList(
		mkMigration("A"),
		mkMigration("B", "A"),
		mkMigration("C", "A"),
		mkMigration("D", "B", "C"),
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"A": true, "B": true, "C": true}, ancestors("D", list))
	assert.Equal(t, map[string]bool{"A": true}, ancestors("B", list))
	assert.Empty(t, ancestors("A", list))
}

func Test_Descendants(t *testing.T) {
	list, err := NewMigrationList(
		mkMigration("A"),
		mkMigration("B", "A"),
		mkMigration("C", "A"),
		mkMigration("D", "B", "C"),
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"B": true, "C": true, "D": true}, descendants("A", list))
	assert.Equal(t, map[string]bool{"D": true}, descendants("B", list))
	assert.Empty(t, descendants("D", list))
}

func Test_Heads(t *testing.T) {
	list, err := NewMigrationList(
		mkMigration("A"),
		mkMigration("B", "A"),
		mkMigration("C", "A"),
		mkMigration("Z"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "Z"}, heads(list))
}
