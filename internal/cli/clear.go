package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ppiankov/postcache/internal/cache"
	"github.com/ppiankov/postcache/internal/config"
	"github.com/ppiankov/postcache/internal/snapshot"
	"github.com/spf13/cobra"
)

var clearAll bool

var clearCmd = &cobra.Command{
	Use:   "clear [account]",
	Short: "Delete the snapshot for an account, or all snapshots with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE:  clearAction,
}

func init() {
	addRequestFlags(clearCmd)
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "delete every snapshot")
}

func clearAction(cmd *cobra.Command, args []string) error {
	if clearAll == (len(args) == 1) {
		return errors.New("give either an account or --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, providerFlag, maxFlag, cmd.Flags().Changed("max")); err != nil {
		return err
	}

	snaps, err := openSnapshots(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = snaps.Close() }()

	ctx := cmd.Context()

	if clearAll {
		n, err := clearEverything(ctx, cfg, snaps)
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d snapshots.\n", n)
		return nil
	}

	key := cache.Key{Provider: cfg.Provider, Account: args[0], MaxCount: cfg.MaxCount}
	if err := cache.Evict(ctx, snaps.layout, snaps.locker, key); err != nil {
		return err
	}
	fmt.Printf("Cleared snapshot for %s.\n", key)
	return nil
}

func clearEverything(ctx context.Context, cfg *config.Config, snaps *snapshots) (int64, error) {
	if snaps.store != nil {
		return snaps.store.ClearAll(ctx)
	}

	var paths []string
	if cfg.Snapshot.Layout == "fixed" {
		paths = []string{cfg.Snapshot.Path}
	} else {
		matches, err := filepath.Glob(filepath.Join(cfg.Snapshot.Dir, "*.csv"))
		if err != nil {
			return 0, fmt.Errorf("list snapshots: %w", err)
		}
		paths = matches
	}

	var n int64
	for _, p := range paths {
		f := snapshot.New(p)
		exists, err := f.Exists(ctx)
		if err != nil {
			return n, err
		}
		if !exists {
			continue
		}
		if err := f.Clear(ctx); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
