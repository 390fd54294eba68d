package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func Test_ViperConfigurator_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "yoyo.ini",
		"[DEFAULT]\n"+
			"database = sqlite:///test.db\n"+
			"sources = migrations\n"+
			"verbosity = 2\n"+
			"batch_mode = true\n"+
			"migration_table = schema_history\n")

	vc := &viperConfigurator{viper: viper.New(), flags: &appFlags{configFile: path}}
	v, err := vc.configure()
	require.NoError(t, err)

	s := settingsFromViper(v)
	assert.Equal(t, "sqlite:///test.db", s.database)
	assert.Equal(t, []string{"migrations"}, s.sources)
	assert.Equal(t, 2, s.verbosity)
	assert.True(t, s.batchMode)
	assert.Equal(t, "schema_history", s.migrationTable)
}

func Test_ViperConfigurator_Inherit(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.ini",
		"[DEFAULT]\n"+
			"database = sqlite:///base.db\n"+
			"verbosity = 3\n"+
			"editor = vi\n")
	child := writeConfigFile(t, dir, "yoyo.ini",
		"%inherit base.ini\n"+
			"[DEFAULT]\n"+
			"database = sqlite:///child.db\n"+
			"sources = %(here)s/migrations\n")

	vc := &viperConfigurator{viper: viper.New(), flags: &appFlags{configFile: child}}
	v, err := vc.configure()
	require.NoError(t, err)

	s := settingsFromViper(v)
	// the child overrides the parent, untouched keys are inherited
	assert.Equal(t, "sqlite:///child.db", s.database)
	assert.Equal(t, 3, s.verbosity)
	assert.Equal(t, "vi", s.editor)
	assert.Equal(t, []string{filepath.Join(dir, "migrations")}, s.sources)
}

func Test_ViperConfigurator_InheritCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "a.ini", "%inherit b.ini\n[DEFAULT]\nverbosity = 1\n")
	path := writeConfigFile(t, dir, "b.ini", "%inherit a.ini\n[DEFAULT]\nverbosity = 2\n")

	vc := &viperConfigurator{viper: viper.New(), flags: &appFlags{configFile: path}}
	_, err := vc.configure()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inherits itself")
}

func Test_ViperConfigurator_NoConfigFile(t *testing.T) {
	vc := &viperConfigurator{viper: viper.New(), flags: &appFlags{noConfigFile: true}}
	v, err := vc.configure()
	require.NoError(t, err)

	s := settingsFromViper(v)
	assert.Empty(t, s.database)
	assert.Empty(t, s.sources)
}

func Test_Pluralize(t *testing.T) {
	assert.Equal(t, "migration", pluralize("migration", 1))
	assert.Equal(t, "migrations", pluralize("migration", 0))
	assert.Equal(t, "migrations", pluralize("migration", 2))
}
