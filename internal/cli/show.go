package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/postcache/internal/digest"
	"github.com/ppiankov/postcache/internal/privacy"
	"github.com/ppiankov/postcache/internal/record"
	"github.com/spf13/cobra"
)

var (
	showFilter string
	showFormat string
	noColor    bool
)

var showCmd = &cobra.Command{
	Use:   "show <account>",
	Short: "Display an account's records, optionally filtered by text",
	Args:  cobra.ExactArgs(1),
	RunE:  showAction,
}

func init() {
	addRequestFlags(showCmd)
	showCmd.Flags().StringVar(&showFilter, "filter", "", "only show records whose text contains this substring")
	showCmd.Flags().StringVar(&showFormat, "format", "", "output format: terminal, json, markdown")
	showCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
}

func showAction(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if showFormat != "" {
		cfg.Output.Format = showFormat
	}
	if err := applyOverrides(cfg, providerFlag, maxFlag, cmd.Flags().Changed("max")); err != nil {
		return err
	}

	var redactor *privacy.Redactor
	if cfg.Privacy.Redact.Enabled && len(cfg.Privacy.Redact.Patterns) > 0 {
		redactor, err = privacy.New(cfg.Privacy.Redact.Patterns)
		if err != nil {
			return err
		}
	}

	formatter, err := digest.New(cfg.Output.Format, cfg.ColorEnabled() && !noColor)
	if err != nil {
		return err
	}

	c, snaps, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = snaps.Close() }()

	account := args[0]
	res, err := c.Get(cmd.Context(), account, cfg.MaxCount)
	if err != nil {
		return err
	}
	if res.SaveErr != nil {
		fmt.Fprintf(os.Stderr, "warning: snapshot not saved: %v\n", res.SaveErr)
	}

	records := res.Records
	if showFilter != "" {
		records = record.FilterByText(records, showFilter)
	}

	return formatter.Format(os.Stdout, digest.Input{
		Account:      account,
		Provider:     cfg.Provider,
		FromSnapshot: res.FromSnapshot,
		Filter:       showFilter,
		Total:        len(res.Records),
		Records:      redactor.Records(records),
	})
}
