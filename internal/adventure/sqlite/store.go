// Package sqlite provides a SQLite-backed adventure catalog.
//
// The catalog stores whole adventure packages keyed by id: the manifest
// columns support listing without decoding, and the data column holds the
// full package as JSON.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/torchlit/engine/internal/adventure"
	"github.com/torchlit/engine/internal/adventure/sqlite/migrations"
	"github.com/torchlit/engine/internal/platform/storage/sqlitemigrate"
)

// ErrNotFound indicates no adventure exists for the requested id.
var ErrNotFound = errors.New("adventure not found")

// Store persists adventure packages in SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Open opens a SQLite adventure catalog and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts or replaces one adventure package.
func (s *Store) Save(ctx context.Context, pkg *adventure.Package) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(pkg.Manifest.ID)
	if id == "" {
		return fmt.Errorf("adventure id is required")
	}
	if err := pkg.Validate(); err != nil {
		return fmt.Errorf("validate adventure: %w", err)
	}
	data, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("encode adventure: %w", err)
	}
	now := s.clock().UTC().UnixMilli()

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO adventures (id, title, start_scene, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   start_scene = excluded.start_scene,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		id,
		pkg.Manifest.Title,
		pkg.Manifest.StartScene,
		data,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("save adventure: %w", err)
	}
	return nil
}

// Get returns one adventure package by id.
func (s *Store) Get(ctx context.Context, id string) (*adventure.Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("adventure id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM adventures WHERE id = ?`, id)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get adventure: %w", err)
	}

	var pkg adventure.Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("decode adventure: %w", err)
	}
	return &pkg, nil
}

// List returns the manifests of every stored adventure, ordered by title.
func (s *Store) List(ctx context.Context) ([]adventure.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, title, start_scene FROM adventures ORDER BY title, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list adventures: %w", err)
	}
	defer rows.Close()

	manifests := make([]adventure.Manifest, 0)
	for rows.Next() {
		var manifest adventure.Manifest
		if err := rows.Scan(&manifest.ID, &manifest.Title, &manifest.StartScene); err != nil {
			return nil, fmt.Errorf("scan adventure: %w", err)
		}
		manifests = append(manifests, manifest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list adventures: %w", err)
	}
	return manifests, nil
}

// Delete removes one adventure by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("adventure id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM adventures WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete adventure: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete adventure: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
