package yoyo

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var slugCleaner = regexp.MustCompile(`[^a-z0-9_]+`)

// GenerateMigration scaffolds a new migration file pair in dir. The file is
// named from a UTC serial and a slug of the message, and its depends header
// is pre-populated with the current heads of the dependency graph so the
// new migration orders after everything that exists.
//
// It returns the created paths, apply script first.
func GenerateMigration(dir, message string, migrations *MigrationList) ([]string, error) {
	if !DirExists(dir) {
		return nil, errors.Errorf("migrations directory %s does not exist", dir)
	}

	slug := slugCleaner.ReplaceAllString(strings.ToLower(strings.TrimSpace(message)), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "migration"
	}

	id := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102150405"), slug)
	applyPath := filepath.Join(dir, id+sqlExt)
	rollbackPath := filepath.Join(dir, id+rollbackExt)
	if FileExists(applyPath) {
		return nil, errors.Errorf("migration %s already exists", applyPath)
	}

	var header strings.Builder
	fmt.Fprintf(&header, "-- %s\n", message)
	if hs := heads(migrations); len(hs) > 0 {
		fmt.Fprintf(&header, "-- depends: %s\n", strings.Join(hs, " "))
	}

	if err := os.WriteFile(applyPath, []byte(header.String()), 0o644); err != nil {
		return nil, errors.Wrapf(err, "can't create migration %s", applyPath)
	}
	rollbackHeader := fmt.Sprintf("-- rollback %s\n", message)
	if err := os.WriteFile(rollbackPath, []byte(rollbackHeader), 0o644); err != nil {
		return nil, errors.Wrapf(err, "can't create rollback migration %s", rollbackPath)
	}

	return []string{applyPath, rollbackPath}, nil
}
