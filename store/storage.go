package store

import (
	"context"
	"errors"
	"log"
	"pdfcrop/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPresetNotFound = errors.New("preset not found")

// PresetStorer keeps named margin presets. Crop requests themselves are
// never stored.
type PresetStorer interface {
	Init(context.Context) error
	SavePreset(context.Context, types.Preset) error
	GetPresetByName(context.Context, string) (*types.Preset, error)
	ListPresets(context.Context) ([]types.Preset, error)
	DeletePreset(context.Context, string) error
	Close() error
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

func (p *PostgresStore) GetPresetByName(ctx context.Context, name string) (*types.Preset, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT id, name, top, margin_right, bottom, margin_left, created_at FROM presets WHERE name = $1", name)

	preset := &types.Preset{}
	err := row.Scan(
		&preset.ID,
		&preset.Name,
		&preset.Margins.Top,
		&preset.Margins.Right,
		&preset.Margins.Bottom,
		&preset.Margins.Left,
		&preset.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPresetNotFound
	}
	if err != nil {
		return nil, err
	}
	return preset, nil
}

// SavePreset inserts the preset, or replaces the margins of an existing
// preset with the same name.
func (p *PostgresStore) SavePreset(ctx context.Context, preset types.Preset) error {
	query := `INSERT INTO presets (id, name, top, margin_right, bottom, margin_left, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			top = EXCLUDED.top,
			margin_right = EXCLUDED.margin_right,
			bottom = EXCLUDED.bottom,
			margin_left = EXCLUDED.margin_left
			`
	_, err := p.pool.Exec(
		ctx,
		query,
		preset.ID,
		preset.Name,
		preset.Margins.Top,
		preset.Margins.Right,
		preset.Margins.Bottom,
		preset.Margins.Left,
		preset.CreatedAt,
	)

	return err
}

func (p *PostgresStore) ListPresets(ctx context.Context) ([]types.Preset, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, name, top, margin_right, bottom, margin_left, created_at FROM presets ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []types.Preset
	for rows.Next() {
		var preset types.Preset
		if err := rows.Scan(
			&preset.ID,
			&preset.Name,
			&preset.Margins.Top,
			&preset.Margins.Right,
			&preset.Margins.Bottom,
			&preset.Margins.Left,
			&preset.CreatedAt); err != nil {
			return nil, err
		}
		presets = append(presets, preset)
	}
	return presets, rows.Err()
}

func (p *PostgresStore) DeletePreset(ctx context.Context, name string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM presets WHERE name = $1", name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPresetNotFound
	}
	return nil
}

func (p *PostgresStore) createPresetTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS presets (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		top DOUBLE PRECISION NOT NULL CHECK (top BETWEEN 0 AND 50),
		margin_right DOUBLE PRECISION NOT NULL CHECK (margin_right BETWEEN 0 AND 50),
		bottom DOUBLE PRECISION NOT NULL CHECK (bottom BETWEEN 0 AND 50),
		margin_left DOUBLE PRECISION NOT NULL CHECK (margin_left BETWEEN 0 AND 50),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createPresetTables(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
