package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"

	"github.com/sydlexius/driftwood/internal/filesystem"
	"github.com/sydlexius/driftwood/internal/logging"
)

// ErrMalformed indicates the config file exists but is not valid YAML.
// Load still returns a usable Config (defaults plus env overrides) alongside
// this error so callers can warn and continue.
var ErrMalformed = errors.New("config file is not valid YAML")

// Config holds all application configuration. It is immutable after Load.
type Config struct {
	ImageDirectory   string           `yaml:"image_directory"`
	DisplayDuration  int              `yaml:"display_duration"` // seconds each image stays on screen
	SupportedFormats []string         `yaml:"supported_formats"`
	ShuffleImages    bool             `yaml:"shuffle_images"`
	BackgroundColor  []int            `yaml:"background_color"` // RGB, 0-255 each
	Fullscreen       bool             `yaml:"fullscreen"`
	ScreenWidth      int              `yaml:"screen_width"` // used when fullscreen is false
	ScreenHeight     int              `yaml:"screen_height"`
	LogLevel         string           `yaml:"log_level"`
	LogFormat        string           `yaml:"log_format"`
	LogFile          string           `yaml:"log_file"`
	RemoteSync       RemoteSyncConfig `yaml:"remote_sync"`
}

// RemoteSyncConfig holds remote folder synchronization settings.
type RemoteSyncConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Provider        string   `yaml:"provider"` // "drive" or "s3"
	FolderID        string   `yaml:"folder_id"`
	CredentialsFile string   `yaml:"credentials_file"`
	SyncInterval    int      `yaml:"sync_interval"` // seconds between sync passes
	Background      bool     `yaml:"background"`    // keep syncing on the interval while displaying
	S3              S3Config `yaml:"s3"`
}

// S3Config holds settings for the S3 sync provider.
type S3Config struct {
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		ImageDirectory:   "./images",
		DisplayDuration:  10,
		SupportedFormats: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"},
		ShuffleImages:    false,
		BackgroundColor:  []int{0, 0, 0},
		Fullscreen:       true,
		ScreenWidth:      1920,
		ScreenHeight:     1080,
		LogLevel:         "info",
		LogFormat:        "text",
		RemoteSync: RemoteSyncConfig{
			Provider:     "drive",
			SyncInterval: 300,
		},
	}
}

// Load reads config from a YAML file and overrides with environment
// variables. A missing file is created with the defaults; a malformed file
// yields the defaults along with ErrMalformed so the caller can warn and
// continue.
func Load(path string) (*Config, error) {
	cfg := Default()

	var malformed bool
	if path != "" {
		switch err := cfg.loadFromFile(path); {
		case err == nil:
		case errors.Is(err, os.ErrNotExist):
			// First run: persist the defaults so the operator has a file to edit.
			_ = cfg.Save(path)
		case errors.Is(err, ErrMalformed):
			cfg = Default()
			malformed = true
		default:
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if malformed {
		return cfg, fmt.Errorf("%s: %w", path, ErrMalformed)
	}
	return cfg, nil
}

// Save writes the config as YAML using an atomic file replace.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := filesystem.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator's flag or env
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("DW_IMAGE_DIR"); v != "" {
		c.ImageDirectory = v
	}
	if v := os.Getenv("DW_DISPLAY_DURATION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DisplayDuration = n
		}
	}
	if v := os.Getenv("DW_SHUFFLE"); v != "" {
		c.ShuffleImages = envBool(v)
	}
	if v := os.Getenv("DW_FULLSCREEN"); v != "" {
		c.Fullscreen = envBool(v)
	}
	if v := os.Getenv("DW_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DW_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("DW_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("DW_SYNC_ENABLED"); v != "" {
		c.RemoteSync.Enabled = envBool(v)
	}
	if v := os.Getenv("DW_SYNC_PROVIDER"); v != "" {
		c.RemoteSync.Provider = v
	}
	if v := os.Getenv("DW_SYNC_FOLDER_ID"); v != "" {
		c.RemoteSync.FolderID = v
	}
	if v := os.Getenv("DW_SYNC_CREDENTIALS"); v != "" {
		c.RemoteSync.CredentialsFile = v
	}
	if v := os.Getenv("DW_SYNC_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RemoteSync.SyncInterval = n
		}
	}
	if v := os.Getenv("DW_S3_BUCKET"); v != "" {
		c.RemoteSync.S3.Bucket = v
	}
	if v := os.Getenv("DW_S3_PROFILE"); v != "" {
		c.RemoteSync.S3.Profile = v
	}
}

func (c *Config) validate() error {
	if c.ImageDirectory == "" {
		return fmt.Errorf("image_directory is required")
	}
	if c.DisplayDuration < 1 {
		return fmt.Errorf("display_duration must be positive, got %d", c.DisplayDuration)
	}
	if c.RemoteSync.SyncInterval < 1 {
		return fmt.Errorf("sync_interval must be positive, got %d", c.RemoteSync.SyncInterval)
	}
	if len(c.BackgroundColor) != 3 {
		return fmt.Errorf("background_color must have 3 components, got %d", len(c.BackgroundColor))
	}
	for _, v := range c.BackgroundColor {
		if v < 0 || v > 255 {
			return fmt.Errorf("background_color component %d out of range 0-255", v)
		}
	}
	if c.ScreenWidth < 1 || c.ScreenHeight < 1 {
		return fmt.Errorf("screen dimensions must be positive, got %dx%d", c.ScreenWidth, c.ScreenHeight)
	}

	c.SupportedFormats = normalizeFormats(c.SupportedFormats)
	if len(c.SupportedFormats) == 0 {
		return fmt.Errorf("supported_formats must list at least one extension")
	}

	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}

	switch c.RemoteSync.Provider {
	case "drive", "s3":
	default:
		return fmt.Errorf("unknown remote_sync provider %q", c.RemoteSync.Provider)
	}

	return nil
}

// normalizeFormats lowercases extensions and ensures each has a leading dot.
// Empty entries are dropped.
func normalizeFormats(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		out = append(out, f)
	}
	return out
}

// FormatSet returns the supported extensions as a set for membership checks.
func (c *Config) FormatSet() mapset.Set[string] {
	return mapset.NewSet(c.SupportedFormats...)
}

// Color returns the configured background color as an opaque RGBA value.
func (c *Config) Color() color.RGBA {
	return color.RGBA{
		R: uint8(c.BackgroundColor[0]), //nolint:gosec // G115: validate bounds components to 0-255
		G: uint8(c.BackgroundColor[1]), //nolint:gosec // G115
		B: uint8(c.BackgroundColor[2]), //nolint:gosec // G115
		A: 0xff,
	}
}

func envBool(v string) bool {
	return v == "true" || v == "1"
}
