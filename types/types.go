package types

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Preset is a named, reusable set of margins.
type Preset struct {
	ID        uuid.UUID  `json:"id" yaml:"id,omitempty"`
	Name      string     `json:"name" yaml:"name"`
	Margins   MarginSpec `json:"margins" yaml:"margins"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at,omitempty"`
}

type PresetParams struct {
	Name   string  `json:"name" validate:"required,max=64,excludesall=/\\"`
	Top    float64 `json:"top" validate:"gte=0,lte=50"`
	Right  float64 `json:"right" validate:"gte=0,lte=50"`
	Bottom float64 `json:"bottom" validate:"gte=0,lte=50"`
	Left   float64 `json:"left" validate:"gte=0,lte=50"`
}

func (params *PresetParams) Validate() map[string]string {
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[fieldKey(e.Field())] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

func (params *PresetParams) ToPreset() Preset {
	return Preset{
		ID:   uuid.New(),
		Name: params.Name,
		Margins: MarginSpec{
			Top:    params.Top,
			Right:  params.Right,
			Bottom: params.Bottom,
			Left:   params.Left,
		},
		CreatedAt: time.Now().UTC(),
	}
}

type Config struct {
	ListenAddr    string
	UploadDir     string
	OutputDir     string
	StaticDir     string
	MaxUploadSize int
	DefaultMargin float64
	PresetStore   string
	PresetDBPath  string
	PG            PGConfig
}

type PGConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// LoadConfig reads the service configuration from the environment. Call it
// after godotenv has populated the process environment.
func LoadConfig() Config {
	port, _ := strconv.Atoi(getenv("PG_PORT", "5432"))
	maxMB, err := strconv.Atoi(getenv("MAX_UPLOAD_MB", "16"))
	if err != nil || maxMB <= 0 {
		maxMB = 16
	}
	margin, err := strconv.ParseFloat(getenv("DEFAULT_MARGIN", "10"), 64)
	if err != nil || margin < MinMargin || margin > MaxMargin {
		margin = DefaultMargin
	}

	return Config{
		ListenAddr:    getenv("SERVER_ADDR", ":5000"),
		UploadDir:     getenv("UPLOAD_DIR", "uploads"),
		OutputDir:     getenv("OUTPUT_DIR", "output"),
		StaticDir:     getenv("STATIC_DIR", "static"),
		MaxUploadSize: maxMB * 1024 * 1024,
		DefaultMargin: margin,
		PresetStore:   getenv("PRESET_STORE", "sqlite"),
		PresetDBPath:  getenv("PRESET_DB_PATH", "presets.db"),
		PG: PGConfig{
			Host:     os.Getenv("PG_HOST"),
			Port:     port,
			User:     os.Getenv("PG_USER"),
			Password: os.Getenv("PG_PASS"),
			DBName:   os.Getenv("PG_DB_NAME"),
		},
	}
}

func (c PGConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", c.Host, c.Port, c.User, c.Password, c.DBName)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
