package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"pdfcrop/types"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const DefaultDBName = "presets.db"

// SQLiteStore keeps presets in a local SQLite file, for single-host setups
// and the command-line tool.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultDBName
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path is the database file the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS presets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	top REAL NOT NULL CHECK (top BETWEEN 0 AND 50),
	margin_right REAL NOT NULL CHECK (margin_right BETWEEN 0 AND 50),
	bottom REAL NOT NULL CHECK (bottom BETWEEN 0 AND 50),
	margin_left REAL NOT NULL CHECK (margin_left BETWEEN 0 AND 50),
	created_at TEXT NOT NULL
);
`

func (s *SQLiteStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return err
}

func (s *SQLiteStore) SavePreset(ctx context.Context, preset types.Preset) error {
	query := `INSERT INTO presets (id, name, top, margin_right, bottom, margin_left, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			top = excluded.top,
			margin_right = excluded.margin_right,
			bottom = excluded.bottom,
			margin_left = excluded.margin_left`
	_, err := s.db.ExecContext(ctx, query,
		preset.ID.String(),
		preset.Name,
		preset.Margins.Top,
		preset.Margins.Right,
		preset.Margins.Bottom,
		preset.Margins.Left,
		preset.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (types.Preset, error) {
	var (
		preset    types.Preset
		id        string
		createdAt string
	)
	if err := row.Scan(
		&id,
		&preset.Name,
		&preset.Margins.Top,
		&preset.Margins.Right,
		&preset.Margins.Bottom,
		&preset.Margins.Left,
		&createdAt); err != nil {
		return preset, err
	}

	var err error
	if preset.ID, err = uuid.Parse(id); err != nil {
		return preset, fmt.Errorf("invalid preset id %q: %w", id, err)
	}
	if preset.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return preset, fmt.Errorf("invalid preset timestamp %q: %w", createdAt, err)
	}
	return preset, nil
}

func (s *SQLiteStore) GetPresetByName(ctx context.Context, name string) (*types.Preset, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, top, margin_right, bottom, margin_left, created_at FROM presets WHERE name = ?", name)
	preset, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPresetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &preset, nil
}

func (s *SQLiteStore) ListPresets(ctx context.Context) ([]types.Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, top, margin_right, bottom, margin_left, created_at FROM presets ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []types.Preset
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, preset)
	}
	return presets, rows.Err()
}

func (s *SQLiteStore) DeletePreset(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM presets WHERE name = ?", name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPresetNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
