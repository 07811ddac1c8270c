package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"pdfcrop/types"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Open connects to the preset backend named by cfg.PresetStore and makes
// sure the schema exists.
func Open(ctx context.Context, cfg types.Config) (PresetStorer, error) {
	var (
		s   PresetStorer
		err error
	)
	switch cfg.PresetStore {
	case "postgres":
		s, err = NewPostgresStore(ctx, cfg.PG.ConnString())
	case "sqlite", "":
		s, err = NewSQLiteStore(cfg.PresetDBPath)
	default:
		return nil, fmt.Errorf("unknown preset store %q", cfg.PresetStore)
	}
	if err != nil {
		return nil, fmt.Errorf("error to connect to %s preset store: %w", cfg.PresetStore, err)
	}

	if err := s.Init(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("error to create tables: %w", err)
	}
	slog.Default().Info("preset store ready", "backend", cfg.PresetStore)
	return s, nil
}

type presetFile struct {
	Presets []types.Preset `yaml:"presets"`
}

// LoadPresetsYAML reads a preset list. Every entry must carry valid margins;
// missing ids and timestamps are filled in.
func LoadPresetsYAML(r io.Reader) ([]types.Preset, error) {
	var file presetFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode presets: %w", err)
	}

	now := time.Now().UTC()
	for i := range file.Presets {
		p := &file.Presets[i]
		if p.Name == "" {
			return nil, fmt.Errorf("preset #%d has no name", i+1)
		}
		m, err := types.NewMarginSpec(p.Margins.Top, p.Margins.Right, p.Margins.Bottom, p.Margins.Left)
		if err != nil {
			var verr types.ValidationError
			if errors.As(err, &verr) {
				return nil, fmt.Errorf("preset %q: %w: %v", p.Name, err, verr.Errors)
			}
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		p.Margins = m
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	}
	return file.Presets, nil
}

func WritePresetsYAML(w io.Writer, presets []types.Preset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(presetFile{Presets: presets}); err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	return enc.Close()
}

// ImportPresets saves every preset, stopping at the first failure.
func ImportPresets(ctx context.Context, s PresetStorer, presets []types.Preset) error {
	for _, p := range presets {
		if err := s.SavePreset(ctx, p); err != nil {
			return fmt.Errorf("failed to save preset %q: %w", p.Name, err)
		}
	}
	return nil
}
