package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const configFileName = "yoyo.ini"

// inheritDirective composes config files: a "%inherit path" line pulls the
// referenced file in underneath the current one.
const inheritDirective = "%inherit"

// herePlaceholder expands to the directory holding the config file.
const herePlaceholder = "%(here)s"

type viperConfigurator struct {
	viper *viper.Viper
	flags *appFlags
}

func (vc *viperConfigurator) configure() (*viper.Viper, error) {
	if !vc.flags.noConfigFile {
		if err := vc.readConfigFile(); err != nil {
			return nil, err
		}
	}
	vc.readFlags()
	return vc.viper, nil
}

func (vc *viperConfigurator) readConfigFile() error {
	path := vc.flags.configFile
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		// no config file around is fine, flags may carry everything
		return nil
	}

	vc.viper.SetConfigType("ini")
	chain, err := inheritChain(path, nil)
	if err != nil {
		return err
	}

	for i, p := range chain {
		content, err := loadConfigContent(p)
		if err != nil {
			return err
		}
		if i == 0 {
			err = vc.viper.ReadConfig(bytes.NewReader(content))
		} else {
			err = vc.viper.MergeConfig(bytes.NewReader(content))
		}
		if err != nil {
			return errors.Wrapf(err, "can't read config file %s", p)
		}
	}
	return nil
}

// inheritChain resolves %inherit directives into the ordered list of config
// files, ancestors first, so later reads override earlier ones.
func inheritChain(path string, seen []string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't resolve config file %s", path)
	}
	for _, s := range seen {
		if s == abs {
			return nil, errors.Errorf("config file %s inherits itself", abs)
		}
	}
	seen = append(seen, abs)

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read config file %s", abs)
	}

	var chain []string
	for _, line := range strings.Split(string(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, inheritDirective) {
			continue
		}
		parent := strings.TrimSpace(strings.TrimPrefix(trimmed, inheritDirective))
		if !filepath.IsAbs(parent) {
			parent = filepath.Join(filepath.Dir(abs), parent)
		}
		parentChain, err := inheritChain(parent, seen)
		if err != nil {
			return nil, err
		}
		chain = append(chain, parentChain...)
	}

	return append(chain, abs), nil
}

// loadConfigContent reads one config file, drops %inherit lines and expands
// %(here)s to the file's directory.
func loadConfigContent(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read config file %s", path)
	}

	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), inheritDirective) {
			continue
		}
		lines = append(lines, strings.ReplaceAll(line, herePlaceholder, filepath.Dir(path)))
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// findConfigFile looks for yoyo.ini in the working directory or a parent.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// readFlags overrides config file values with explicitly set flags.
func (vc *viperConfigurator) readFlags() {
	pflags := rootCmd.PersistentFlags()
	if pflags.Changed("database") {
		vc.viper.Set("database", migrateFlags.database)
	}
	if pflags.Changed("source") {
		vc.viper.Set("sources", strings.Join(migrateFlags.sources, " "))
	}
	if pflags.Changed("batch") {
		vc.viper.Set("batch_mode", migrateFlags.batchMode)
	}
	if pflags.Changed("verbosity") {
		vc.viper.Set("verbosity", migrateFlags.verbosity)
	}
	if pflags.Changed("force") {
		vc.viper.Set("force", migrateFlags.force)
	}
	if pflags.Changed("migration-table") {
		vc.viper.Set("migration_table", migrateFlags.migrationTable)
	}
	if pflags.Changed("lock-timeout") {
		vc.viper.Set("lock_timeout", migrateFlags.lockTimeout.String())
	}
}

func settingsFromViper(v *viper.Viper) *appSettings {
	s := &appSettings{
		database:          getString(v, "database"),
		sources:           strings.Fields(getString(v, "sources")),
		batchMode:         getBool(v, "batch_mode"),
		verbosity:         getInt(v, "verbosity"),
		force:             getBool(v, "force"),
		migrationTable:    getString(v, "migration_table"),
		editor:            getString(v, "editor"),
		postCreateCommand: getString(v, "post_create_command"),
	}
	if lt := getString(v, "lock_timeout"); lt != "" {
		if d, err := time.ParseDuration(lt); err == nil {
			s.lockTimeout = d
		}
	}
	return s
}

// The INI DEFAULT section surfaces in viper under the default prefix;
// explicit flag overrides live at the top level. Top level wins.

func getString(v *viper.Viper, key string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return v.GetString("default." + key)
}

func getBool(v *viper.Viper, key string) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return v.GetBool("default." + key)
}

func getInt(v *viper.Viper, key string) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return v.GetInt("default." + key)
}
