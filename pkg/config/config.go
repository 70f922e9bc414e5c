package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "IMGURSTATS_"

// Config holds all configuration options for imgurstats
type Config struct {
	Imgur     ImgurConfig     `yaml:"imgur" json:"imgur"`
	Fetch     FetchConfig     `yaml:"fetch" json:"fetch"`
	Ranking   RankingConfig   `yaml:"ranking" json:"ranking"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
}

// ImgurConfig holds upstream endpoints and request identity.
// SiteURLTemplate is expanded with the account name in place of {user}.
type ImgurConfig struct {
	ClientID        string        `yaml:"client_id" json:"client_id" validate:"required"`
	Cookie          string        `yaml:"cookie,omitempty" json:"-"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent" validate:"required"`
	APIBaseURL      string        `yaml:"api_base_url" json:"api_base_url" validate:"required,url"`
	WebBaseURL      string        `yaml:"web_base_url" json:"web_base_url" validate:"required,url"`
	SiteURLTemplate string        `yaml:"site_url_template" json:"site_url_template" validate:"required,contains={user}"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
}

// FetchConfig holds paging and pacing settings of a fetch session
type FetchConfig struct {
	PagesPerRound     int           `yaml:"pages_per_round" json:"pages_per_round" validate:"gt=0"`
	MaxRounds         int           `yaml:"max_rounds" json:"max_rounds" validate:"gt=0,lte=100"`
	ImagesPerPage     int           `yaml:"images_per_page" json:"images_per_page" validate:"gt=0,lte=60"`
	RefreshPages      int           `yaml:"refresh_pages" json:"refresh_pages" validate:"gt=0"`
	RefreshPostPages  int           `yaml:"refresh_post_pages" json:"refresh_post_pages" validate:"gt=0"`
	RefreshImagePages int           `yaml:"refresh_image_pages" json:"refresh_image_pages" validate:"gt=0"`
	ImageOnlyPages    int           `yaml:"image_only_pages" json:"image_only_pages" validate:"gt=0"`
	InitialDelay      time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" json:"max_delay"`
	Cooldown          time.Duration `yaml:"cooldown" json:"cooldown"`
	BatchDelay        time.Duration `yaml:"batch_delay" json:"batch_delay"`
	AssumeYes         bool          `yaml:"assume_yes" json:"assume_yes"`
}

// RankingConfig holds the top-list and threshold settings
type RankingConfig struct {
	MinViewThreshold    int64 `yaml:"min_view_threshold" json:"min_view_threshold" validate:"gte=0"`
	SaveSize            int   `yaml:"save_size" json:"save_size" validate:"gt=0"`
	DisplaySize         int   `yaml:"display_size" json:"display_size" validate:"gt=0"`
	DisplaySizeElevated int   `yaml:"display_size_elevated" json:"display_size_elevated" validate:"gt=0"`
}

// StorageConfig selects the persistent key-value backend
type StorageConfig struct {
	Driver     string `yaml:"driver" json:"driver" validate:"oneof=badger sqlite"`
	Path       string `yaml:"path" json:"path"`
	SyncWrites bool   `yaml:"sync_writes" json:"sync_writes"`
}

// RateLimitConfig holds the client side request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"gt=0"`
	Burst             int     `yaml:"burst" json:"burst" validate:"gt=0"`
}

// RetryConfig is used for single lookups such as the account check; page
// fetches are never retried.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts" validate:"gte=1,lte=10"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier" validate:"gte=1"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error fatal disabled off"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=console json"`
	Color  bool   `yaml:"color" json:"color"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr" validate:"required_if=Enabled true"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Imgur: ImgurConfig{
			ClientID:        "546c25a59c58ad7",
			UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			APIBaseURL:      "https://api.imgur.com",
			WebBaseURL:      "https://imgur.com",
			SiteURLTemplate: "https://{user}.imgur.com",
			Timeout:         30 * time.Second,
		},
		Fetch: FetchConfig{
			PagesPerRound:     30,
			MaxRounds:         10,
			ImagesPerPage:     60,
			RefreshPages:      4,
			RefreshPostPages:  2,
			RefreshImagePages: 2,
			ImageOnlyPages:    3,
			InitialDelay:      500 * time.Millisecond,
			MaxDelay:          2 * time.Second,
			Cooldown:          10 * time.Second,
			BatchDelay:        250 * time.Millisecond,
		},
		Ranking: RankingConfig{
			MinViewThreshold:    50,
			SaveSize:            300,
			DisplaySize:         50,
			DisplaySizeElevated: 100,
		},
		Storage: StorageConfig{
			Driver: "badger",
			Path:   DefaultDataDir(),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 4,
			Burst:             2,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Color:  true,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}

// DefaultDataDir is the XDG data directory used for the store.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "imgurstats")
}

// DefaultConfigPath is where `config init` writes the config file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "imgurstats", "config.yaml")
}

// LoadFromEnv loads configuration from IMGURSTATS_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setString("CLIENT_ID", &c.Imgur.ClientID)
	setString("COOKIE", &c.Imgur.Cookie)
	setString("USER_AGENT", &c.Imgur.UserAgent)
	setString("STORAGE_DRIVER", &c.Storage.Driver)
	setString("STORAGE_PATH", &c.Storage.Path)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)
	setString("METRICS_ADDR", &c.Metrics.Addr)

	if v := os.Getenv(envPrefix + "REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_SECOND: %w", envPrefix, err))
		} else {
			c.RateLimit.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv(envPrefix + "MIN_VIEWS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMIN_VIEWS: %w", envPrefix, err))
		} else {
			c.Ranking.MinViewThreshold = n
		}
	}
	if v := os.Getenv(envPrefix + "METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv(envPrefix + "ASSUME_YES"); v != "" {
		c.Fetch.AssumeYes = strings.EqualFold(v, "true") || v == "1"
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func findConfigFile() string {
	locations := []string{
		".imgurstats.yaml",
		".imgurstats.yml",
		DefaultConfigPath(),
		filepath.Join(xdg.Home, ".imgurstats.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the relations between them
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if c.Fetch.InitialDelay < 0 || c.Fetch.Cooldown < 0 || c.Fetch.BatchDelay < 0 {
		errs = append(errs, errors.New("fetch delays cannot be negative"))
	}
	if c.Fetch.MaxDelay < c.Fetch.InitialDelay {
		errs = append(errs, errors.New("fetch.max_delay must not be below fetch.initial_delay"))
	}
	if c.Ranking.DisplaySize > c.Ranking.SaveSize || c.Ranking.DisplaySizeElevated > c.Ranking.SaveSize {
		errs = append(errs, errors.New("ranking display sizes cannot exceed ranking.save_size"))
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		errs = append(errs, errors.New("retry.max_delay must not be below retry.initial_delay"))
	}
	if c.Imgur.Timeout <= 0 {
		errs = append(errs, errors.New("imgur.timeout must be positive"))
	}

	return errors.Join(errs...)
}

// Save writes the configuration to a YAML file. The session cookie is never
// written; it belongs in the credential store.
func (c *Config) Save(path string) error {
	out := *c
	out.Imgur.Cookie = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
	if v, ok := flags["store"].(string); ok && v != "" {
		c.Storage.Driver = v
	}
	if v, ok := flags["data-dir"].(string); ok && v != "" {
		c.Storage.Path = v
	}
	if v, ok := flags["pages"].(int); ok && v > 0 {
		c.Fetch.PagesPerRound = v
	}
	if v, ok := flags["yes"].(bool); ok && v {
		c.Fetch.AssumeYes = true
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Enabled = true
		c.Metrics.Addr = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.Color = false
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(xdg.ConfigHome, "imgurstats", "imgurstats.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
