package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	providerFlag string
	maxFlag      int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <account>",
	Short: "Fetch an account's posts, or load them from the snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  fetchAction,
}

func init() {
	addRequestFlags(fetchCmd)
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&providerFlag, "provider", "", "provider: twitter, reddit, hn, mastodon, telegram")
	cmd.Flags().IntVar(&maxFlag, "max", 0, "maximum number of posts to fetch (default from config)")
}

func fetchAction(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, providerFlag, maxFlag, cmd.Flags().Changed("max")); err != nil {
		return err
	}

	c, snaps, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = snaps.Close() }()

	account := args[0]
	slog.Debug("fetch", "provider", cfg.Provider, "account", account, "max", cfg.MaxCount)

	res, err := c.Get(cmd.Context(), account, cfg.MaxCount)
	if err != nil {
		return err
	}
	if res.SaveErr != nil {
		fmt.Fprintf(os.Stderr, "warning: snapshot not saved: %v\n", res.SaveErr)
	}

	if res.FromSnapshot {
		fmt.Printf("Loaded %d records for %s from snapshot\n", len(res.Records), account)
	} else {
		fmt.Printf("Fetched %d records for %s via %s\n", len(res.Records), account, cfg.Provider)
	}
	return nil
}
