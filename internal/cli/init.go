package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/postcache/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with example files",
	RunE:  initAction,
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	created := 0

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig), 0o644)
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	secretsPath := filepath.Join(configDir, config.DefaultSecretsFile)
	wrote, err = writeIfNotExists(secretsPath, []byte(exampleSecrets), 0o600)
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	if created == 0 {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Printf("Initialized %s with %d config files.\n", configDir, created)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# postcache configuration

# twitter, reddit, hn, mastodon or telegram
provider: twitter
max_count: 200

# key=value credentials, relative to this directory
secrets_file: secrets.env

# how long to wait for another postcache process refreshing the same snapshot
lock_timeout: 30s

snapshot:
  # csv or sqlite
  backend: csv
  # keyed: one snapshot per provider, account and max_count
  # fixed: a single file reused for every request until cleared
  layout: keyed
  path: ./tweets.csv
  dir: .postcache/snapshots
  db: .postcache/postcache.db

providers:
  mastodon:
    instance: https://mastodon.social
  telegram:
    api_id_env: TELEGRAM_API_ID
    api_hash_env: TELEGRAM_API_HASH
    session_dir: .postcache/session

privacy:
  redact:
    enabled: false
    patterns: []
    # - "(?i)password\\S*"

output:
  format: terminal
`

const exampleSecrets = `# postcache secrets (twitter provider)
api_key=
api_secret=
access_token=
access_token_secret=
`
