package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL         = "http://127.0.0.1:7433"
	DefaultDBFileName     = ".roadlens.db"
	DefaultMediaDirName   = ".roadlens-media"
	DefaultLogLevel       = "info"
	DefaultDBDriver       = "sqlite"
	DefaultProviderKind   = ProviderLocal
	DefaultJWTIssuer      = "roadlens"
	DefaultUploadTimeout  = 60 * time.Second
	DefaultThumbnailWidth = 150
	// DefaultThumbnailHeight matches the width for square previews.
	DefaultThumbnailHeight = 150

	ProviderHosted = "hosted"
	ProviderS3     = "s3"
	ProviderLocal  = "local"

	configFileName           = ".roadlens.toml"
	configDirEnvKey          = "ROADLENS_CONFIG_DIR"
	trustProjectConfigEnvKey = "ROADLENS_TRUST_PROJECT_CONFIG"

	redactedValue = "********"
)

// Duration is a time.Duration read from TOML strings such as "60s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses Go duration syntax or plain seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DBConfig selects the metadata store.
type DBConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

// ProviderConfig selects and configures the photo upload backend.
type ProviderConfig struct {
	Kind string `toml:"kind"`

	// hosted image provider
	UploadURL         string `toml:"upload_url"`
	UploadPreset      string `toml:"upload_preset"`
	PresetFixesFolder bool   `toml:"preset_fixes_folder"`

	DeliveryBaseURL string   `toml:"delivery_base_url"`
	Timeout         Duration `toml:"timeout"`

	// local
	MediaDir string `toml:"media_dir"`

	// s3
	S3Bucket        string `toml:"s3_bucket"`
	S3Region        string `toml:"s3_region"`
	S3Endpoint      string `toml:"s3_endpoint"`
	S3PublicBaseURL string `toml:"s3_public_base_url"`
}

// PhotosConfig tunes photo presentation.
type PhotosConfig struct {
	ThumbnailWidth  int `toml:"thumbnail_width"`
	ThumbnailHeight int `toml:"thumbnail_height"`
}

// AuthConfig carries identity and admin settings.
type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret"`
	JWTIssuer       string `toml:"jwt_issuer"`
	AdminTokenHash  string `toml:"admin_token_hash"`
	TrustUserHeader bool   `toml:"trust_user_header"`
}

// Config defines runtime configuration for roadlens.
type Config struct {
	APIURL                   string         `toml:"api_url"`
	LogLevel                 string         `toml:"log_level"`
	DB                       DBConfig       `toml:"db"`
	Provider                 ProviderConfig `toml:"provider"`
	Photos                   PhotosConfig   `toml:"photos"`
	Auth                     AuthConfig     `toml:"auth"`
	TrustedProjectConfigPath string         `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		DB: DBConfig{
			Driver: DefaultDBDriver,
		},
		Provider: ProviderConfig{
			Kind:    DefaultProviderKind,
			Timeout: Duration{DefaultUploadTimeout},
		},
		Photos: PhotosConfig{
			ThumbnailWidth:  DefaultThumbnailWidth,
			ThumbnailHeight: DefaultThumbnailHeight,
		},
		Auth: AuthConfig{
			JWTIssuer: DefaultJWTIssuer,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"log_level",
	"db.driver",
	"db.path",
	"db.dsn",
	"provider.kind",
	"provider.upload_url",
	"provider.upload_preset",
	"provider.preset_fixes_folder",
	"provider.delivery_base_url",
	"provider.timeout",
	"provider.media_dir",
	"provider.s3_bucket",
	"provider.s3_region",
	"provider.s3_endpoint",
	"provider.s3_public_base_url",
	"photos.thumbnail_width",
	"photos.thumbnail_height",
	"auth.jwt_secret",
	"auth.jwt_issuer",
	"auth.admin_token_hash",
	"auth.trust_user_header",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key. Secrets are redacted.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "log_level":
		return c.LogLevel, nil
	case "db.driver":
		return c.DB.Driver, nil
	case "db.path":
		return c.DB.Path, nil
	case "db.dsn":
		return redact(c.DB.DSN), nil
	case "provider.kind":
		return c.Provider.Kind, nil
	case "provider.upload_url":
		return c.Provider.UploadURL, nil
	case "provider.upload_preset":
		return c.Provider.UploadPreset, nil
	case "provider.preset_fixes_folder":
		return strconv.FormatBool(c.Provider.PresetFixesFolder), nil
	case "provider.delivery_base_url":
		return c.Provider.DeliveryBaseURL, nil
	case "provider.timeout":
		return c.Provider.Timeout.String(), nil
	case "provider.media_dir":
		return c.Provider.MediaDir, nil
	case "provider.s3_bucket":
		return c.Provider.S3Bucket, nil
	case "provider.s3_region":
		return c.Provider.S3Region, nil
	case "provider.s3_endpoint":
		return c.Provider.S3Endpoint, nil
	case "provider.s3_public_base_url":
		return c.Provider.S3PublicBaseURL, nil
	case "photos.thumbnail_width":
		return strconv.Itoa(c.Photos.ThumbnailWidth), nil
	case "photos.thumbnail_height":
		return strconv.Itoa(c.Photos.ThumbnailHeight), nil
	case "auth.jwt_secret":
		return redact(c.Auth.JWTSecret), nil
	case "auth.jwt_issuer":
		return c.Auth.JWTIssuer, nil
	case "auth.admin_token_hash":
		return c.Auth.AdminTokenHash, nil
	case "auth.trust_user_header":
		return strconv.FormatBool(c.Auth.TrustUserHeader), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return redactedValue
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// The file can hold secrets.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	applyEnv(&cfg)
	cfg.normalize()

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"ROADLENS_API_URL", &cfg.APIURL},
		{"ROADLENS_LOG_LEVEL", &cfg.LogLevel},
		{"ROADLENS_DB", &cfg.DB.Path},
		{"ROADLENS_DB_DRIVER", &cfg.DB.Driver},
		{"ROADLENS_DB_DSN", &cfg.DB.DSN},
		{"ROADLENS_PROVIDER", &cfg.Provider.Kind},
		{"ROADLENS_JWT_SECRET", &cfg.Auth.JWTSecret},
		{"ROADLENS_ADMIN_TOKEN_HASH", &cfg.Auth.AdminTokenHash},
	}
	for _, o := range overrides {
		if value := strings.TrimSpace(os.Getenv(o.key)); value != "" {
			*o.target = value
		}
	}
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.DB.Driver == "" {
		c.DB.Driver = DefaultDBDriver
	}
	if c.DB.Path == "" {
		if cwd, err := os.Getwd(); err == nil {
			c.DB.Path = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	c.Provider.Kind = strings.ToLower(strings.TrimSpace(c.Provider.Kind))
	if c.Provider.Kind == "" {
		c.Provider.Kind = DefaultProviderKind
	}
	if c.Provider.Timeout.Duration <= 0 {
		c.Provider.Timeout = Duration{DefaultUploadTimeout}
	}
	if c.Provider.MediaDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			c.Provider.MediaDir = filepath.Join(cwd, DefaultMediaDirName)
		}
	}
	if c.Photos.ThumbnailWidth <= 0 {
		c.Photos.ThumbnailWidth = DefaultThumbnailWidth
	}
	if c.Photos.ThumbnailHeight <= 0 {
		c.Photos.ThumbnailHeight = DefaultThumbnailHeight
	}
	if strings.TrimSpace(c.Auth.JWTIssuer) == "" {
		c.Auth.JWTIssuer = DefaultJWTIssuer
	}
}

// ValidateProvider checks the settings the selected provider needs.
func (c *Config) ValidateProvider() error {
	p := c.Provider
	switch p.Kind {
	case ProviderLocal:
		if strings.TrimSpace(p.MediaDir) == "" {
			return fmt.Errorf("provider.media_dir is required for the local provider")
		}
	case ProviderHosted:
		if strings.TrimSpace(p.UploadURL) == "" {
			return fmt.Errorf("provider.upload_url is required for the hosted provider")
		}
		if strings.TrimSpace(p.UploadPreset) == "" {
			return fmt.Errorf("provider.upload_preset is required for the hosted provider")
		}
	case ProviderS3:
		if strings.TrimSpace(p.S3Bucket) == "" {
			return fmt.Errorf("provider.s3_bucket is required for the s3 provider")
		}
		if strings.TrimSpace(p.S3PublicBaseURL) == "" {
			return fmt.Errorf("provider.s3_public_base_url is required for the s3 provider")
		}
	default:
		return fmt.Errorf("unknown provider.kind %q (want %s, %s or %s)", p.Kind, ProviderLocal, ProviderHosted, ProviderS3)
	}
	if d := p.Timeout.Duration; d != 0 && d != DefaultUploadTimeout {
		return fmt.Errorf("provider.timeout is fixed at %s per file, got %s", DefaultUploadTimeout, d)
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "photos.thumbnail_width", "photos.thumbnail_height":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return int64(parsed), nil
	case "provider.preset_fixes_folder", "auth.trust_user_header":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "provider.timeout":
		parsed, err := parseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if parsed != DefaultUploadTimeout {
			return nil, fmt.Errorf("%s is fixed at %s per file", key, DefaultUploadTimeout)
		}
		return parsed.String(), nil
	case "provider.kind":
		kind := strings.ToLower(value)
		switch kind {
		case ProviderLocal, ProviderHosted, ProviderS3:
			return kind, nil
		default:
			return nil, fmt.Errorf("provider.kind must be one of %s, %s, %s", ProviderLocal, ProviderHosted, ProviderS3)
		}
	case "db.driver":
		driver := strings.ToLower(value)
		switch driver {
		case "sqlite", "postgres":
			return driver, nil
		default:
			return nil, fmt.Errorf("db.driver must be sqlite or postgres")
		}
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

// parseDuration accepts Go durations or plain seconds.
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", raw)
}
