package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ppiankov/postcache/internal/config"
	"github.com/ppiankov/postcache/internal/snapshot"
	"github.com/ppiankov/postcache/internal/store"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, credentials and snapshot location",
	RunE:  doctorAction,
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printInfo("config directory %s not found (run postcache init)", configDir)
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		printInfo("config.yaml not found, using defaults")
		cfg = config.Default(configDir)
	case err != nil:
		printCheck(false, "config.yaml: %v", err)
		return fmt.Errorf("some checks failed")
	default:
		printCheck(true, "config.yaml (provider %s, max_count %d)", cfg.Provider, cfg.MaxCount)
	}

	if !checkProvider(cfg) {
		ok = false
	}
	if !checkSnapshots(cmd, cfg) {
		ok = false
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func checkProvider(cfg *config.Config) bool {
	switch cfg.Provider {
	case "twitter":
		secrets, err := config.LoadSecrets(cfg.SecretsPath())
		if err != nil {
			printCheck(false, "secrets: %v", err)
			return false
		}
		if missing := secrets.Missing(); len(missing) > 0 {
			if secrets.APIKey == "" || secrets.APISecret == "" {
				printCheck(false, "secrets %s: missing %s", cfg.SecretsPath(), strings.Join(missing, ", "))
				return false
			}
			printInfo("secrets %s: missing %s (not needed for reading)", cfg.SecretsPath(), strings.Join(missing, ", "))
		}
		printCheck(true, "secrets %s", cfg.SecretsPath())

	case "mastodon":
		if _, err := newProvider(cfg); err != nil {
			printCheck(false, "mastodon: %v", err)
			return false
		}
		printCheck(true, "mastodon instance %s", cfg.Providers.Mastodon.Instance)

	case "telegram":
		return checkTelegram(cfg)

	default:
		printCheck(true, "provider %s (no credentials needed)", cfg.Provider)
	}
	return true
}

func checkTelegram(cfg *config.Config) bool {
	ok := true
	tg := cfg.Providers.Telegram

	python := tg.PythonPath
	if python == "" {
		python = "python3"
	}
	if _, err := exec.LookPath(python); err != nil {
		printCheck(false, "%s not found", python)
		return false
	}
	printCheck(true, "%s", python)

	if err := exec.Command(python, "-c", "import telethon").Run(); err != nil {
		printCheck(false, "telethon not installed (pip install telethon)")
		ok = false
	} else {
		printCheck(true, "telethon")
	}

	if tg.APIID == "" || tg.APIHash == "" {
		printCheck(false, "telegram credentials: set %s and %s", tg.APIIDEnv, tg.APIHashEnv)
		ok = false
	} else {
		printCheck(true, "telegram credentials")
	}

	script := tg.Script
	if script == "" {
		script = filepath.Join(cfg.Dir, "..", "scripts", "collector_telegram.py")
	}
	if info, err := os.Stat(script); err != nil || info.IsDir() {
		printCheck(false, "telegram script %s not found", script)
		ok = false
	} else {
		printCheck(true, "telegram script %s", script)
	}

	if tg.SessionDir != "" {
		sessionFile := filepath.Join(tg.SessionDir, "postcache.session")
		if _, err := os.Stat(sessionFile); err != nil {
			printCheck(false, "telegram session (run collector_telegram.py manually first)")
			ok = false
		} else {
			printCheck(true, "telegram session")
		}
	}
	return ok
}

func checkSnapshots(cmd *cobra.Command, cfg *config.Config) bool {
	switch {
	case cfg.Snapshot.Backend == "sqlite":
		st, err := store.Open(cfg.Snapshot.DB)
		if err != nil {
			printCheck(false, "database: %v", err)
			return false
		}
		defer func() { _ = st.Close() }()
		infos, err := st.List(cmd.Context())
		if err != nil {
			printCheck(false, "database: %v", err)
			return false
		}
		printCheck(true, "database %s (%d snapshots)", cfg.Snapshot.DB, len(infos))

	case cfg.Snapshot.Layout == "fixed":
		f := snapshot.New(cfg.Snapshot.Path)
		exists, err := f.Exists(cmd.Context())
		if err != nil {
			printCheck(false, "snapshot %s: %v", f.Path(), err)
			return false
		}
		if !exists {
			printCheck(true, "snapshot %s (not created yet)", f.Path())
			return true
		}
		records, err := f.Load(cmd.Context())
		if err != nil {
			printCheck(false, "snapshot %s: %v", f.Path(), err)
			return false
		}
		printCheck(true, "snapshot %s (%d records)", f.Path(), len(records))

	default:
		if err := os.MkdirAll(cfg.Snapshot.Dir, 0o755); err != nil {
			printCheck(false, "snapshot dir: %v", err)
			return false
		}
		matches, _ := filepath.Glob(filepath.Join(cfg.Snapshot.Dir, "*.csv"))
		printCheck(true, "snapshot dir %s (%d snapshots)", cfg.Snapshot.Dir, len(matches))
	}
	return true
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
