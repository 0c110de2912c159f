package digest

import (
	"fmt"
	"io"
	"strconv"
)

// TerminalFormatter formats records for terminal output.
type TerminalFormatter struct {
	color bool
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool) *TerminalFormatter {
	return &TerminalFormatter{color: color}
}

// Format writes a header line and one entry per record to w.
func (f *TerminalFormatter) Format(w io.Writer, input Input) error {
	header := fmt.Sprintf("postcache: %s via %s, %s (%s)",
		input.Account, input.Provider, summary(input), origin(input.FromSnapshot))
	fmt.Fprintln(w, f.bold(header))
	fmt.Fprintln(w)

	if len(input.Records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	width := 0
	for _, r := range input.Records {
		if n := len(strconv.FormatInt(r.ID, 10)); n > width {
			width = n
		}
	}

	for _, r := range input.Records {
		id := fmt.Sprintf("%*d", width, r.ID)
		pad := fmt.Sprintf("%*s", width+4, "")
		fmt.Fprintf(w, "  %s  %s\n", f.dim(id), indent(r.Text, pad))
	}

	return nil
}

// ANSI helpers, no-op when color=false.

func (f *TerminalFormatter) bold(s string) string {
	if !f.color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func (f *TerminalFormatter) dim(s string) string {
	if !f.color {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}
