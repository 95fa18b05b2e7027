package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 10<<20)
	}
	if cfg.StorageBackend != StorageBackendLocal {
		t.Errorf("StorageBackend = %q, want %q", cfg.StorageBackend, StorageBackendLocal)
	}
	if !filepath.IsAbs(cfg.MediaStoragePath) {
		t.Errorf("MediaStoragePath should be absolute, got %q", cfg.MediaStoragePath)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("MEDIA_PUBLIC_URL", "https://cdn.example.com/beaches/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MaxUploadBytes != 2048 {
		t.Errorf("MaxUploadBytes = %d, want 2048", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
	if cfg.MediaPublicURL != "https://cdn.example.com/beaches" {
		t.Errorf("MediaPublicURL = %q, trailing slash should be trimmed", cfg.MediaPublicURL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "webp_quality: 70\nplaceholder_cover_url: /img/none.webp\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.WebPQuality != 70 {
		t.Errorf("WebPQuality = %d, want 70", cfg.WebPQuality)
	}
	if cfg.PlaceholderCoverURL != "/img/none.webp" {
		t.Errorf("PlaceholderCoverURL = %q", cfg.PlaceholderCoverURL)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWTSecret"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWTSecret"},
		{"unknown backend", func(c *Config) { c.StorageBackend = "ftp" }, "StorageBackend"},
		{"s3 without bucket", func(c *Config) { c.StorageBackend = StorageBackendS3 }, "S3Bucket"},
		{"quality out of range", func(c *Config) { c.WebPQuality = 101 }, "WebPQuality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			cfg.JWTSecret = "0123456789abcdef0123"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestBlockedExtensionList(t *testing.T) {
	t.Parallel()
	cfg := Config{BlockedExtensions: " .PHP, exe,,.sh "}
	got := cfg.BlockedExtensionList()
	want := []string{".php", ".exe", ".sh"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BlockedExtensionList() = %v, want %v", got, want)
	}
}
