package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven server configuration.
type Config struct {
	StorageType    string `env:"STORAGE_TYPE" envDefault:"memory"`
	LocalStorePath string `env:"LOCAL_STORAGE_PATH" envDefault:"./data"`
	DataSourceName string `env:"DATA_SOURCE_NAME" envDefault:"whiteboard.db"`
	S3BucketName   string `env:"S3_BUCKET_NAME"`

	// BrushesPath points at a JSON array of brush templates; empty uses the built-in palette.
	BrushesPath string `env:"BRUSHES_PATH"`
	CanvasName  string `env:"CANVAS_NAME" envDefault:"Untitled"`

	// JWTSecret enables bearer authentication on mutating routes when set.
	JWTSecret string `env:"JWT_SECRET"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
