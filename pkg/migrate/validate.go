package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/angelmondragon/stockwatch-backend/pkg/config"
)

const versionLayout = "20060102150405"

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// postgresOnly are constructs the sqlite migrations must not carry.
var postgresOnly = []string{"create type", "timestamptz", "gen_random_uuid", "$$"}

// ValidateDir checks filenames, versions and goose headers in one directory.
// A directory named after the sqlite driver is also checked for postgres-only
// syntax.
func ValidateDir(dir string) error {
	_, err := readMigrations(dir)
	return err
}

// ValidateDialectDirs validates every directory and requires them to hold the
// same migration files, so a schema change never lands for one driver only.
// With no dirs the postgres and sqlite directories are used.
func ValidateDialectDirs(dirs ...string) error {
	if len(dirs) == 0 {
		dirs = DialectDirs()
	}
	var (
		baseDir string
		base    []string
	)
	for _, dir := range dirs {
		files, err := readMigrations(dir)
		if err != nil {
			return err
		}
		if base == nil {
			baseDir, base = dir, files
			continue
		}
		if missing := difference(base, files); len(missing) > 0 {
			return fmt.Errorf("%q is missing migrations present in %q: %s", dir, baseDir, strings.Join(missing, ", "))
		}
		if extra := difference(files, base); len(extra) > 0 {
			return fmt.Errorf("%q has migrations missing from %q: %s", dir, baseDir, strings.Join(extra, ", "))
		}
	}
	return nil
}

// readMigrations returns the sorted migration filenames in dir.
func readMigrations(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	sqliteDir := filepath.Base(dir) == config.DriverSQLite

	byVersion := map[string]string{}
	files := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := byVersion[m[1]]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		byVersion[m[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", name, err)
		}
		if err := checkMigrationBody(name, string(body), sqliteDir); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations found in %q", dir)
	}
	sort.Strings(files)
	return files, nil
}

func checkMigrationBody(name, body string, sqlite bool) error {
	for _, header := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(body, header) {
			return fmt.Errorf("migration %q missing %q", name, header)
		}
	}
	if !sqlite {
		return nil
	}
	lower := strings.ToLower(body)
	for _, token := range postgresOnly {
		if strings.Contains(lower, token) {
			return fmt.Errorf("sqlite migration %q uses postgres-only syntax %q", name, token)
		}
	}
	return nil
}

func difference(a, b []string) []string {
	seen := make(map[string]struct{}, len(b))
	for _, name := range b {
		seen[name] = struct{}{}
	}
	var out []string
	for _, name := range a {
		if _, ok := seen[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
