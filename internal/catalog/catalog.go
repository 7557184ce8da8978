// Package catalog records user-added single-file assets in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no asset has the requested name.
	ErrNotFound = errors.New("asset not found")
	// ErrExists is returned when adding a name that is already taken.
	ErrExists = errors.New("asset already exists")
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS assets (
    name TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`

// Asset is a user-added file downloaded from a direct link.
type Asset struct {
	Name      string    `json:"name" yaml:"name"`
	URL       string    `json:"url" yaml:"url"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Catalog is a SQLite-backed asset table.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add inserts an asset. CreatedAt defaults to now.
func (c *Catalog) Add(ctx context.Context, a Asset) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO assets (name, url, created_at) VALUES (?, ?, ?)`,
		a.Name, a.URL, a.CreatedAt.UnixMilli())
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %s", ErrExists, a.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to add asset %s: %w", a.Name, err)
	}
	return nil
}

// Get returns the asset called name.
func (c *Catalog) Get(ctx context.Context, name string) (Asset, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT name, url, created_at FROM assets WHERE name = ?`, name)

	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Asset{}, fmt.Errorf("failed to get asset %s: %w", name, err)
	}
	return a, nil
}

// List returns every asset in insertion order.
func (c *Catalog) List(ctx context.Context) ([]Asset, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, url, created_at FROM assets ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Delete removes the asset called name.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM assets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(s scanner) (Asset, error) {
	var a Asset
	var created int64
	if err := s.Scan(&a.Name, &a.URL, &created); err != nil {
		return Asset{}, err
	}
	a.CreatedAt = time.UnixMilli(created)
	return a, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
