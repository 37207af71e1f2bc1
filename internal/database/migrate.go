package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

//go:embed schema/*/*.sql
var schemaFS embed.FS

type migration struct {
	version int
	name    string
	body    string
}

// RunMigrations applies the embedded schema files for the connection's
// driver that are newer than the recorded version. Returns the number of
// migrations applied.
func RunMigrations(ctx context.Context, db *sqlx.DB, logger zerolog.Logger) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	driver, err := NormalizeDriver(db.DriverName())
	if err != nil {
		return 0, err
	}
	migrations, err := loadMigrations(driver)
	if err != nil {
		return 0, err
	}

	qb := NewQueryBuilder(db)
	if _, err := qb.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := qb.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		logger.Info().Str("driver", driver).Int("version", m.version).Str("file", m.name).Msg("applying migration")

		for _, stmt := range splitStatements(m.body) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return applied, fmt.Errorf("migration %s: %w", m.name, err)
			}
		}
		if _, err := qb.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			return applied, fmt.Errorf("record migration %s: %w", m.name, err)
		}
		applied++
	}
	return applied, nil
}

func loadMigrations(driver string) ([]migration, error) {
	dir := path.Join("schema", driver)
	entries, err := fs.ReadDir(schemaFS, dir)
	if err != nil {
		return nil, fmt.Errorf("no schema for driver %s: %w", driver, err)
	}

	var out []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: version prefix: %w", name, err)
		}
		body, err := fs.ReadFile(schemaFS, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, migration{version: version, name: name, body: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// splitStatements splits a schema file on semicolons that end a line.
// Comment lines are dropped.
func splitStatements(body string) []string {
	var (
		stmts   []string
		current strings.Builder
	)
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
			stmts = append(stmts, stmt)
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}
