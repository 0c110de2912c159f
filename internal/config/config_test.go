package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeTestYAML(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test yaml: %v", err)
	}
	return path
}

// --- Load tests ---

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_TG_ID", "12345")
	t.Setenv("TEST_TG_HASH", "abcdef")

	writeTestYAML(t, dir, DefaultConfigFile, `
provider: telegram
max_count: 50
secrets_file: /etc/postcache/secrets.env
lock_timeout: 5s
snapshot:
  backend: sqlite
  layout: keyed
  db: custom.db
providers:
  mastodon:
    instance: https://fosstodon.org
  telegram:
    api_id_env: TEST_TG_ID
    api_hash_env: TEST_TG_HASH
    session_dir: .postcache/session
    script: scripts/collector_telegram.py
    python_path: /usr/bin/python3
privacy:
  redact:
    enabled: true
    patterns:
      - "(?i)token"
output:
  format: json
  color: false
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Provider != "telegram" {
		t.Errorf("provider = %q, want telegram", cfg.Provider)
	}
	if cfg.MaxCount != 50 {
		t.Errorf("max_count = %d, want 50", cfg.MaxCount)
	}
	if cfg.SecretsPath() != "/etc/postcache/secrets.env" {
		t.Errorf("secrets path = %q", cfg.SecretsPath())
	}
	if cfg.LockTimeout.Duration != 5*time.Second {
		t.Errorf("lock_timeout = %v, want 5s", cfg.LockTimeout.Duration)
	}

	// Snapshot
	if cfg.Snapshot.Backend != "sqlite" || cfg.Snapshot.DB != "custom.db" {
		t.Errorf("snapshot = %+v", cfg.Snapshot)
	}
	if cfg.Snapshot.Path != DefaultSnapshotPath {
		t.Errorf("snapshot.path = %q, want default", cfg.Snapshot.Path)
	}

	// Providers
	if cfg.Providers.Mastodon.Instance != "https://fosstodon.org" {
		t.Errorf("mastodon instance = %q", cfg.Providers.Mastodon.Instance)
	}
	tg := cfg.Providers.Telegram
	if tg.APIID != "12345" || tg.APIHash != "abcdef" {
		t.Errorf("telegram credentials = %q/%q", tg.APIID, tg.APIHash)
	}
	if tg.SessionDir != ".postcache/session" || tg.PythonPath != "/usr/bin/python3" {
		t.Errorf("telegram = %+v", tg)
	}

	// Privacy
	if !cfg.Privacy.Redact.Enabled || len(cfg.Privacy.Redact.Patterns) != 1 {
		t.Errorf("redact = %+v", cfg.Privacy.Redact)
	}

	// Output
	if cfg.Output.Format != "json" {
		t.Errorf("format = %q, want json", cfg.Output.Format)
	}
	if cfg.ColorEnabled() {
		t.Error("color enabled, want disabled")
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "account_hint: ignored\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Provider != DefaultProvider {
		t.Errorf("provider = %q, want %q", cfg.Provider, DefaultProvider)
	}
	if cfg.MaxCount != DefaultMaxCount {
		t.Errorf("max_count = %d, want %d", cfg.MaxCount, DefaultMaxCount)
	}
	if cfg.Snapshot.Backend != DefaultBackend || cfg.Snapshot.Layout != DefaultLayout {
		t.Errorf("snapshot = %+v", cfg.Snapshot)
	}
	if cfg.Snapshot.Path != DefaultSnapshotPath || cfg.Snapshot.Dir != DefaultSnapshotDir || cfg.Snapshot.DB != DefaultDatabasePath {
		t.Errorf("snapshot paths = %+v", cfg.Snapshot)
	}
	if cfg.LockTimeout.Duration != DefaultLockTimeout {
		t.Errorf("lock_timeout = %v, want %v", cfg.LockTimeout.Duration, DefaultLockTimeout)
	}
	if cfg.Output.Format != DefaultFormat {
		t.Errorf("format = %q, want %q", cfg.Output.Format, DefaultFormat)
	}
	if !cfg.ColorEnabled() {
		t.Error("color disabled by default")
	}
	if want := filepath.Join(dir, DefaultSecretsFile); cfg.SecretsPath() != want {
		t.Errorf("secrets path = %q, want %q", cfg.SecretsPath(), want)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default(".postcache")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Dir != ".postcache" {
		t.Errorf("dir = %q", cfg.Dir)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown provider", "provider: myspace\n", "unknown provider"},
		{"negative max_count", "max_count: -1\n", "max_count"},
		{"unknown backend", "snapshot:\n  backend: redis\n", "snapshot.backend"},
		{"unknown layout", "snapshot:\n  layout: sharded\n", "snapshot.layout"},
		{"fixed sqlite", "snapshot:\n  backend: sqlite\n  layout: fixed\n", "requires the csv backend"},
		{"unknown format", "output:\n  format: html\n", "output.format"},
		{"bad duration", "lock_timeout: soon\n", "parse duration"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTestYAML(t, dir, DefaultConfigFile, tc.yaml)

			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want containing %q", err, tc.want)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
	if want := "read config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `{{{invalid`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for malformed yaml")
	}
	if want := "parse config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for empty dir")
	}
	if want := "config dir is required"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_EnvVarMissing(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
providers:
  telegram:
    api_id_env: NONEXISTENT_VAR_12345
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers.Telegram.APIID != "" {
		t.Errorf("api_id = %q, want empty", cfg.Providers.Telegram.APIID)
	}
}

func TestLoad_TelegramEnvDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TELEGRAM_API_ID", "777")
	writeTestYAML(t, dir, DefaultConfigFile, "provider: telegram\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers.Telegram.APIID != "777" {
		t.Errorf("api_id = %q, want 777", cfg.Providers.Telegram.APIID)
	}
}

// --- LoadSecrets tests ---

func TestLoadSecrets(t *testing.T) {
	dir := t.TempDir()
	path := writeTestYAML(t, dir, "secrets.env", `
# twitter app credentials
api_key = key-1
api_secret=secret=with=equals
ACCESS_TOKEN=token-1

access_token_secret=  spaced  
unrelated=ignored
`)

	s, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("load secrets: %v", err)
	}
	want := Secrets{
		APIKey:            "key-1",
		APISecret:         "secret=with=equals",
		AccessToken:       "token-1",
		AccessTokenSecret: "spaced",
	}
	if s != want {
		t.Errorf("secrets = %+v, want %+v", s, want)
	}
	if missing := s.Missing(); len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
}

func TestLoadSecrets_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := writeTestYAML(t, dir, "secrets.env", "api_key=k\n\nno equals sign here\n")

	_, err := LoadSecrets(path)
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if want := ":3:"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want line number %q", err, want)
	}
}

func TestLoadSecrets_EmptyKey(t *testing.T) {
	dir := t.TempDir()
	path := writeTestYAML(t, dir, "secrets.env", "=value\n")

	if _, err := LoadSecrets(path); err == nil || !strings.Contains(err.Error(), "empty key") {
		t.Fatalf("err = %v, want empty key error", err)
	}
}

func TestLoadSecrets_Missing(t *testing.T) {
	_, err := LoadSecrets(filepath.Join(t.TempDir(), "nope.env"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestSecrets_Missing(t *testing.T) {
	s := Secrets{APIKey: "k", AccessToken: "t"}
	want := []string{"api_secret", "access_token_secret"}
	if got := s.Missing(); !reflect.DeepEqual(got, want) {
		t.Errorf("missing = %v, want %v", got, want)
	}
}
