package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/postcache/internal/snapshot"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE:  listAction,
}

func listAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snaps, err := openSnapshots(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = snaps.Close() }()

	ctx := cmd.Context()

	if snaps.store != nil {
		infos, err := snaps.store.List(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%-10s %-24s max %-5d %5d records  %s\n",
				info.Provider, info.Account, info.MaxCount, info.Records, info.CreatedAt.Local().Format(time.DateTime))
		}
		return nil
	}

	var paths []string
	if cfg.Snapshot.Layout == "fixed" {
		paths = []string{cfg.Snapshot.Path}
	} else {
		paths, err = filepath.Glob(filepath.Join(cfg.Snapshot.Dir, "*.csv"))
		if err != nil {
			return fmt.Errorf("list snapshots: %w", err)
		}
	}

	shown := 0
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		records, err := snapshot.New(p).Load(ctx)
		if err != nil {
			fmt.Printf("%-48s  unreadable: %v\n", filepath.Base(p), err)
			shown++
			continue
		}
		fmt.Printf("%-48s %5d records  %s\n", filepath.Base(p), len(records), info.ModTime().Local().Format(time.DateTime))
		shown++
	}
	if shown == 0 {
		fmt.Println("No snapshots.")
	}
	return nil
}
