package yoyo

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	sqlExt      = ".sql"
	rollbackExt = ".rollback.sql"
	// tempFilePrefix marks scratch .sql files in a source directory; they
	// are skipped when reading migrations
	tempFilePrefix = "tmp_"
)

// ReadMigrations loads every migration script found in the given source
// directories. An identity appearing twice, whether within one directory or
// across directories, is a hard error.
//
// A migration is a <id>.sql file with an optional <id>.rollback.sql file
// next to it. Leading comment lines form a header:
//
//	-- add users table
//	-- depends: 0001_create_schema 0002_extensions
//	-- ignore-errors: apply
//
// Lines of the form "-- step:" split the script into multiple steps; the
// n-th segment of the rollback file undoes the n-th segment of the apply
// file. A file whose stem starts with post-apply loads as a post-apply
// hook.
func ReadMigrations(paths ...string) (*MigrationList, error) {
	list, err := NewMigrationList()
	if err != nil {
		return nil, err
	}

	for _, dir := range paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "can't read migrations directory %s", dir)
		}

		var names []string
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() ||
				!strings.HasSuffix(strings.ToLower(name), sqlExt) ||
				strings.HasSuffix(strings.ToLower(name), rollbackExt) ||
				strings.HasPrefix(name, tempFilePrefix) {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			m, err := readMigrationFile(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			if err = list.Append(m); err != nil {
				return nil, err
			}
		}
	}

	return list, nil
}

func readMigrationFile(path string) (*Migration, error) {
	apply, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read migration %s", path)
	}

	var rollback []byte
	rollbackPath := strings.TrimSuffix(path, sqlExt) + rollbackExt
	if FileExists(rollbackPath) {
		rollback, err = os.ReadFile(rollbackPath)
		if err != nil {
			return nil, errors.Wrapf(err, "can't read rollback migration %s", rollbackPath)
		}
	}

	id := strings.TrimSuffix(filepath.Base(path), sqlExt)
	return parseMigration(id, path, string(apply), string(rollback))
}

// parseMigration builds the object model from migration script sources.
func parseMigration(id, path, apply, rollback string) (*Migration, error) {
	m := &Migration{ID: id, Path: path, Metadata: map[string]string{}}

	header, applyBody := splitHeader(apply)
	ignoreErrors := IgnoreNone
	for key, value := range header {
		switch key {
		case "depends":
			m.Depends = strings.Fields(value)
		case "ignore-errors":
			var err error
			ignoreErrors, err = IgnoreErrorsFromString(value)
			if err != nil {
				return nil, errors.Wrapf(err, "can't load migration %s", path)
			}
		default:
			m.Metadata[key] = value
		}
	}

	applySteps := splitSteps(applyBody)
	_, rollbackBody := splitHeader(rollback)
	rollbackSteps := splitSteps(rollbackBody)
	if len(rollbackSteps) > 0 && len(rollbackSteps) != len(applySteps) {
		return nil, errors.Errorf(
			"can't load migration %s: %d apply steps but %d rollback steps",
			path, len(applySteps), len(rollbackSteps))
	}

	for i, stmt := range applySteps {
		var rb string
		if len(rollbackSteps) > 0 {
			rb = rollbackSteps[i]
		}
		m.Steps = append(m.Steps, NewSQLStep(stmt, rb, ignoreErrors))
	}

	return m, nil
}

// splitHeader separates the leading comment block from the script body and
// parses "-- key: value" lines out of it. Plain comment lines without a
// colon are collected under the message key.
func splitHeader(source string) (map[string]string, string) {
	header := map[string]string{}
	lines := strings.Split(source, "\n")

	var bodyStart int
	var message []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "--") {
			if trimmed == "" && len(header) == 0 && len(message) == 0 {
				continue
			}
			bodyStart = i
			break
		}
		bodyStart = i + 1

		comment := strings.TrimSpace(strings.TrimPrefix(trimmed, "--"))
		if isStepMarker(trimmed) {
			bodyStart = i
			break
		}
		if key, value, ok := strings.Cut(comment, ":"); ok && !strings.ContainsAny(key, " \t") {
			header[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
		} else if comment != "" {
			message = append(message, comment)
		}
	}

	if len(message) > 0 {
		header["message"] = strings.Join(message, " ")
	}
	return header, strings.Join(lines[bodyStart:], "\n")
}

// splitSteps cuts a script body into step statements on "-- step:" marker
// lines. Empty segments are dropped, so a script without markers is a
// single step.
func splitSteps(body string) []string {
	var steps []string
	var current []string

	flush := func() {
		stmt := strings.TrimSpace(strings.Join(current, "\n"))
		if stmt != "" {
			steps = append(steps, stmt)
		}
		current = nil
	}

	for _, line := range strings.Split(body, "\n") {
		if isStepMarker(strings.TrimSpace(line)) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return steps
}

func isStepMarker(trimmedLine string) bool {
	if !strings.HasPrefix(trimmedLine, "--") {
		return false
	}
	comment := strings.TrimSpace(strings.TrimPrefix(trimmedLine, "--"))
	return comment == "step" || comment == "step:"
}

// FileExists checks if file at path exists
func FileExists(fpath string) bool {
	stats, err := os.Stat(fpath)
	if os.IsNotExist(err) || err != nil || stats.IsDir() {
		return false
	}
	return true
}

// DirExists checks if directory at path exists
func DirExists(dirpath string) bool {
	stats, err := os.Stat(dirpath)
	if os.IsNotExist(err) || err != nil || !stats.IsDir() {
		return false
	}
	return true
}
