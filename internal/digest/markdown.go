package digest

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownFormatter formats records as Markdown.
type MarkdownFormatter struct{}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes the records as a Markdown list to w.
func (f *MarkdownFormatter) Format(w io.Writer, input Input) error {
	fmt.Fprintf(w, "# %s\n\n", input.Account)
	fmt.Fprintf(w, "%s via %s (%s)\n\n", summary(input), input.Provider, origin(input.FromSnapshot))

	if len(input.Records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	for _, r := range input.Records {
		text := strings.TrimSpace(r.Text)
		fmt.Fprintf(w, "- **%d** %s\n", r.ID, indent(text, "  "))
	}

	return nil
}
