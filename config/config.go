package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

const (
	defaultMaxUploadBytes      = 10 << 20 // 10 MiB
	defaultPlaceholderCoverURL = "/static/images/placeholder-beach.webp"
	defaultMediaSubDir         = "beach_images"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Port string `koanf:"port" validate:"required"`

	// database path (sqlite file)
	DatabasePath string `koanf:"database_path" validate:"required"`

	// media storage configuration
	StorageBackend   string `koanf:"storage_backend" validate:"oneof=local s3"`
	MediaStoragePath string `koanf:"media_storage_path"` // root for locally stored variants
	MediaPublicURL   string `koanf:"media_public_url" validate:"required"`
	S3Bucket         string `koanf:"s3_bucket" validate:"required_if=StorageBackend s3"`
	S3Region         string `koanf:"s3_region"`
	S3Endpoint       string `koanf:"s3_endpoint"` // R2 / MinIO style endpoints
	S3AccessKey      string `koanf:"s3_access_key"`
	S3SecretKey      string `koanf:"s3_secret_key"`

	// upload rules
	MaxUploadBytes      int64  `koanf:"max_upload_bytes" validate:"gt=0"`
	BlockedExtensions   string `koanf:"blocked_extensions"` // comma separated, e.g. ".php,.exe"
	PlaceholderCoverURL string `koanf:"placeholder_cover_url" validate:"required"`
	WebPQuality         int    `koanf:"webp_quality" validate:"min=1,max=100"`
	UploadTempDir       string `koanf:"upload_temp_dir"` // empty = os.TempDir()

	// auth
	JWTSecret     string        `koanf:"jwt_secret" validate:"required,min=16"`
	SessionTTL    time.Duration `koanf:"session_ttl" validate:"gt=0"`
	CookieSecure  bool          `koanf:"cookie_secure"`
	AdminUsername string        `koanf:"admin_username"`
	AdminPassword string        `koanf:"admin_password"`

	// http
	CORSOrigins       string        `koanf:"cors_origins"` // comma separated
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=json console"`
}

func defaultConfig() Config {
	return Config{
		Port:                "8080",
		DatabasePath:        "beaches.db",
		StorageBackend:      StorageBackendLocal,
		MediaStoragePath:    filepath.Join(".", "media_storage", defaultMediaSubDir),
		MediaPublicURL:      "/media",
		MaxUploadBytes:      defaultMaxUploadBytes,
		BlockedExtensions:   ".php,.phtml,.exe,.sh,.js",
		PlaceholderCoverURL: defaultPlaceholderCoverURL,
		WebPQuality:         82,
		SessionTTL:          24 * time.Hour,
		CORSOrigins:         "http://localhost:5173",
		RateLimitRequests:   120,
		RateLimitWindow:     time.Minute,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// LoadConfig layers defaults, an optional YAML file and the environment (highest
// priority). Callers are expected to have run godotenv.Load beforehand.
func LoadConfig() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// DATABASE_PATH -> database_path
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.StorageBackend == StorageBackendLocal {
		abs, err := filepath.Abs(cfg.MediaStoragePath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", cfg.MediaStoragePath, err)
		}
		cfg.MediaStoragePath = abs
	}
	cfg.MediaPublicURL = strings.TrimRight(cfg.MediaPublicURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct-level rules.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.StorageBackend == StorageBackendLocal && c.MediaStoragePath == "" {
		return fmt.Errorf("invalid configuration: media_storage_path is required for local storage")
	}
	return nil
}

// BlockedExtensionList returns the normalized blocked upload extensions.
func (c Config) BlockedExtensionList() []string {
	return splitList(c.BlockedExtensions, func(s string) string {
		s = strings.ToLower(s)
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		return s
	})
}

// CORSOriginList returns the allowed CORS origins.
func (c Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins, nil)
}

func splitList(raw string, normalize func(string) string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if normalize != nil {
			part = normalize(part)
		}
		out = append(out, part)
	}
	return out
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
