package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORAGE_TYPE", "LOCAL_STORAGE_PATH", "DATA_SOURCE_NAME", "CANVAS_NAME", "JWT_SECRET"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.StorageType != "" && cfg.StorageType != "memory" {
		t.Errorf("StorageType = %q", cfg.StorageType)
	}
	if cfg.JWTSecret != "" {
		t.Errorf("JWTSecret = %q, want empty", cfg.JWTSecret)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("DATA_SOURCE_NAME", "/tmp/board.db")
	t.Setenv("S3_BUCKET_NAME", "boards")
	t.Setenv("BRUSHES_PATH", "brushes.json")
	t.Setenv("CANVAS_NAME", "Sketch")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := Config{
		StorageType:    "sqlite",
		LocalStorePath: cfg.LocalStorePath,
		DataSourceName: "/tmp/board.db",
		S3BucketName:   "boards",
		BrushesPath:    "brushes.json",
		CanvasName:     "Sketch",
		JWTSecret:      "s3cret",
	}
	if cfg != want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}
