package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile   = "config.yaml"
	DefaultSecretsFile  = "secrets.env"
	DefaultProvider     = "twitter"
	DefaultMaxCount     = 200
	DefaultBackend      = "csv"
	DefaultLayout       = "keyed"
	DefaultSnapshotPath = "./tweets.csv"
	DefaultSnapshotDir  = ".postcache/snapshots"
	DefaultDatabasePath = ".postcache/postcache.db"
	DefaultFormat       = "terminal"
	DefaultLockTimeout  = 30 * time.Second

	DefaultMastodonInstance = "https://mastodon.social"
)

// Providers lists the provider names accepted in config and on the command line.
var Providers = []string{"twitter", "reddit", "hn", "mastodon", "telegram"}

// Duration wraps time.Duration for YAML unmarshaling from strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Provider    string          `yaml:"provider"`
	MaxCount    int             `yaml:"max_count"`
	SecretsFile string          `yaml:"secrets_file"`
	LockTimeout Duration        `yaml:"lock_timeout"`
	Snapshot    SnapshotConfig  `yaml:"snapshot"`
	Providers   ProvidersConfig `yaml:"providers"`
	Privacy     PrivacyConfig   `yaml:"privacy"`
	Output      OutputConfig    `yaml:"output"`

	// Directory the config was loaded from; relative secrets paths resolve against it.
	Dir string `yaml:"-"`
}

type SnapshotConfig struct {
	// Backend is "csv" (one file per key, or a single file) or "sqlite".
	Backend string `yaml:"backend"`
	// Layout is "keyed" or "fixed". Fixed reuses Path for every account and count.
	Layout string `yaml:"layout"`
	Path   string `yaml:"path"`
	Dir    string `yaml:"dir"`
	DB     string `yaml:"db"`
}

type ProvidersConfig struct {
	Mastodon MastodonConfig `yaml:"mastodon"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type MastodonConfig struct {
	Instance string `yaml:"instance"`
}

type TelegramConfig struct {
	APIIDEnv   string `yaml:"api_id_env"`
	APIHashEnv string `yaml:"api_hash_env"`
	SessionDir string `yaml:"session_dir"`
	Script     string `yaml:"script"`
	PythonPath string `yaml:"python_path"`

	// Resolved from env vars at load time.
	APIID   string `yaml:"-"`
	APIHash string `yaml:"-"`
}

type PrivacyConfig struct {
	Redact RedactConfig `yaml:"redact"`
}

type RedactConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
	Color  *bool  `yaml:"color"`
}

// Default returns the configuration used when no config.yaml exists.
func Default(dir string) *Config {
	cfg := &Config{Dir: dir}
	applyDefaults(cfg)
	resolveEnv(cfg)
	return cfg
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Dir = dir

	applyDefaults(&cfg)
	resolveEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// SecretsPath returns the secrets file location, resolved against the config dir.
func (c *Config) SecretsPath() string {
	if filepath.IsAbs(c.SecretsFile) || c.Dir == "" {
		return c.SecretsFile
	}
	return filepath.Join(c.Dir, c.SecretsFile)
}

// ColorEnabled reports whether terminal output should use ANSI colors.
func (c *Config) ColorEnabled() bool {
	return c.Output.Color == nil || *c.Output.Color
}

// Validate checks the values that can also be overridden by flags.
func (c *Config) Validate() error {
	return validate(c)
}

func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.MaxCount == 0 {
		cfg.MaxCount = DefaultMaxCount
	}
	if cfg.SecretsFile == "" {
		cfg.SecretsFile = DefaultSecretsFile
	}
	if cfg.LockTimeout.Duration == 0 {
		cfg.LockTimeout.Duration = DefaultLockTimeout
	}
	if cfg.Snapshot.Backend == "" {
		cfg.Snapshot.Backend = DefaultBackend
	}
	if cfg.Snapshot.Layout == "" {
		cfg.Snapshot.Layout = DefaultLayout
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = DefaultSnapshotPath
	}
	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = DefaultSnapshotDir
	}
	if cfg.Snapshot.DB == "" {
		cfg.Snapshot.DB = DefaultDatabasePath
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultFormat
	}
	if cfg.Providers.Mastodon.Instance == "" {
		cfg.Providers.Mastodon.Instance = DefaultMastodonInstance
	}
	if cfg.Providers.Telegram.APIIDEnv == "" {
		cfg.Providers.Telegram.APIIDEnv = "TELEGRAM_API_ID"
	}
	if cfg.Providers.Telegram.APIHashEnv == "" {
		cfg.Providers.Telegram.APIHashEnv = "TELEGRAM_API_HASH"
	}
}

func resolveEnv(cfg *Config) {
	if cfg.Providers.Telegram.APIIDEnv != "" {
		cfg.Providers.Telegram.APIID = os.Getenv(cfg.Providers.Telegram.APIIDEnv)
	}
	if cfg.Providers.Telegram.APIHashEnv != "" {
		cfg.Providers.Telegram.APIHash = os.Getenv(cfg.Providers.Telegram.APIHashEnv)
	}
}

func validate(cfg *Config) error {
	if !KnownProvider(cfg.Provider) {
		return fmt.Errorf("provider: unknown provider %q (want one of %s)", cfg.Provider, strings.Join(Providers, ", "))
	}
	if cfg.MaxCount < 0 {
		return fmt.Errorf("max_count: must be >= 0, got %d", cfg.MaxCount)
	}

	switch cfg.Snapshot.Backend {
	case "csv", "sqlite":
		// valid
	default:
		return fmt.Errorf("snapshot.backend: unknown backend %q (want csv or sqlite)", cfg.Snapshot.Backend)
	}

	switch cfg.Snapshot.Layout {
	case "keyed", "fixed":
		// valid
	default:
		return fmt.Errorf("snapshot.layout: unknown layout %q (want keyed or fixed)", cfg.Snapshot.Layout)
	}
	if cfg.Snapshot.Backend == "sqlite" && cfg.Snapshot.Layout == "fixed" {
		return errors.New("snapshot.layout: fixed layout requires the csv backend")
	}

	switch cfg.Output.Format {
	case "terminal", "json", "markdown":
		// valid
	default:
		return fmt.Errorf("output.format: unknown format %q (want terminal, json or markdown)", cfg.Output.Format)
	}

	if cfg.LockTimeout.Duration < 0 {
		return errors.New("lock_timeout: must not be negative")
	}

	return nil
}

// KnownProvider reports whether name is a supported provider.
func KnownProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}
