// Package digest renders a record set for display.
package digest

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/postcache/internal/record"
)

// Input is the full input for a formatter.
type Input struct {
	Account      string
	Provider     string
	FromSnapshot bool
	Filter       string          // substring filter, empty when none was applied
	Total        int             // records before filtering
	Records      []record.Record // records to display, already filtered
}

// Formatter writes a formatted record set to w.
type Formatter interface {
	Format(w io.Writer, input Input) error
}

// New returns the formatter for format: terminal, json or markdown.
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "", "terminal":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown":
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func origin(fromSnapshot bool) string {
	if fromSnapshot {
		return "snapshot"
	}
	return "fetched"
}

func summary(input Input) string {
	s := fmt.Sprintf("%d records", len(input.Records))
	if input.Filter != "" {
		s = fmt.Sprintf("%d of %d records matching %q", len(input.Records), input.Total, input.Filter)
	}
	return s
}

// indent prefixes every line after the first with pad.
func indent(text, pad string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\n", "\n"+pad)
}
