package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/ppiankov/postcache/internal/cache"
	"github.com/ppiankov/postcache/internal/config"
	"github.com/ppiankov/postcache/internal/lock"
	"github.com/ppiankov/postcache/internal/source"
	"github.com/ppiankov/postcache/internal/store"
)

// newProvider is replaced in tests.
var newProvider = buildProvider

// loadConfig reads config.yaml from the config dir. A missing file means defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no config file, using defaults", "dir", configDir)
		return config.Default(configDir), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// applyOverrides applies --provider and --max to cfg and revalidates.
func applyOverrides(cfg *config.Config, provider string, maxCount int, maxSet bool) error {
	if provider != "" {
		cfg.Provider = provider
	}
	if maxSet {
		cfg.MaxCount = maxCount
	}
	return cfg.Validate()
}

func buildProvider(cfg *config.Config) (source.Provider, error) {
	switch cfg.Provider {
	case "twitter":
		secrets, err := config.LoadSecrets(cfg.SecretsPath())
		if err != nil {
			return nil, fmt.Errorf("load secrets: %w", err)
		}
		return source.NewTwitter(source.TwitterCredentials{
			APIKey:            secrets.APIKey,
			APISecret:         secrets.APISecret,
			AccessToken:       secrets.AccessToken,
			AccessTokenSecret: secrets.AccessTokenSecret,
		})
	case "reddit":
		return source.NewReddit(), nil
	case "hn":
		return source.NewHN(), nil
	case "mastodon":
		return source.NewMastodon(cfg.Providers.Mastodon.Instance)
	case "telegram":
		tg := cfg.Providers.Telegram
		scriptPath := tg.Script
		if scriptPath == "" {
			scriptPath = filepath.Join(cfg.Dir, "..", "scripts", "collector_telegram.py")
		}
		return source.NewTelegram(source.TelegramOptions{
			ScriptPath: scriptPath,
			PythonPath: tg.PythonPath,
			APIID:      tg.APIID,
			APIHash:    tg.APIHash,
			SessionDir: tg.SessionDir,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// snapshots is the layout and locker selected by config, plus what must be
// closed when the command ends.
type snapshots struct {
	layout cache.Layout
	locker cache.Locker
	store  *store.Store
}

func openSnapshots(cfg *config.Config) (*snapshots, error) {
	var (
		s       = &snapshots{}
		lockDir string
	)

	switch {
	case cfg.Snapshot.Backend == "sqlite":
		st, err := store.Open(cfg.Snapshot.DB)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.store = st
		s.layout = cache.StoreLayout{Store: st}
		lockDir = filepath.Dir(cfg.Snapshot.DB)
	case cfg.Snapshot.Layout == "fixed":
		s.layout = cache.FixedLayout{Path: cfg.Snapshot.Path}
		lockDir = filepath.Dir(cfg.Snapshot.Path)
	default:
		s.layout = cache.FileLayout{Dir: cfg.Snapshot.Dir}
		lockDir = cfg.Snapshot.Dir
	}

	s.locker = lock.Files{Dir: lockDir, Timeout: cfg.LockTimeout.Duration}
	slog.Debug("snapshots", "backend", cfg.Snapshot.Backend, "layout", cfg.Snapshot.Layout, "lock_dir", lockDir)
	return s, nil
}

func (s *snapshots) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

// openCache builds the provider and snapshot layout for cfg.
func openCache(cfg *config.Config) (*cache.Cache, *snapshots, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}

	snaps, err := openSnapshots(cfg)
	if err != nil {
		return nil, nil, err
	}

	c, err := cache.New(provider, snaps.layout, cache.WithLocker(snaps.locker))
	if err != nil {
		_ = snaps.Close()
		return nil, nil, err
	}
	return c, snaps, nil
}
