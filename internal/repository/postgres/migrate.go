package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Migrator applies the .sql files of a directory in lexical order. Applied
// file names are recorded in schema_migrations.
type Migrator struct {
	BaseRepository
	dir string
}

func NewMigrator(base BaseRepository, dir string) *Migrator {
	return &Migrator{BaseRepository: base, dir: dir}
}

// Pending lists the migration files that have not been applied yet.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	files, err := m.files()
	if err != nil {
		return nil, err
	}

	var applied []string
	if err := m.db.SelectContext(ctx, &applied, `SELECT name FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	var pending []string
	for _, name := range files {
		if !done[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// Up applies every pending file, each in its own transaction, and returns
// how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for i, name := range pending {
		body, err := os.ReadFile(filepath.Join(m.dir, name))
		if err != nil {
			return i, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		err = m.WithTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return i, fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("Applied migration")
	}
	return len(pending), nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) files() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", m.dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
