package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// DialectDirs lists the on-disk migration directories that ship together.
func DialectDirs() []string {
	return []string{DefaultDir, DefaultSQLiteDir}
}

// CreateSQLMigrations writes one goose migration per dialect directory, all
// sharing a single version:
//
//	<dir>/<YYYYMMDDHHMMSS>_<name>.sql
//
// With no dirs the postgres and sqlite directories are used. Nothing is
// written when any target already exists.
func CreateSQLMigrations(name string, dirs ...string) ([]string, error) {
	safe, err := migrationName(name)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		dirs = DialectDirs()
	}

	filename := fmt.Sprintf("%s_%s.sql", time.Now().UTC().Format(versionLayout), safe)
	targets := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if dir == "" {
			return nil, fmt.Errorf("dir is required")
		}
		target := filepath.Join(dir, filename)
		if _, err := os.Stat(target); err == nil {
			return nil, fmt.Errorf("migration already exists: %s", target)
		}
		targets = append(targets, target)
	}

	written := make([]string, 0, len(targets))
	for _, target := range targets {
		if err := writeMigration(target, safe); err != nil {
			for _, path := range written {
				err = errors.Join(err, os.Remove(path))
			}
			return nil, err
		}
		written = append(written, target)
	}
	return written, nil
}

func migrationName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("name is required")
	}
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	safe = strings.Trim(safe, "_")
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	return safe, nil
}

func writeMigration(target, name string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}
	dialect := filepath.Base(dir)
	body := fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %[1]s (%[2]s)
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s (%[2]s)
-- +goose StatementEnd
`, name, dialect)
	if err := os.WriteFile(target, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write migration %q: %w", target, err)
	}
	return nil
}
