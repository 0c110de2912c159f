// Package privacy masks sensitive substrings in record text before display.
// Snapshots always keep the original text.
package privacy

import (
	"fmt"
	"regexp"

	"github.com/ppiankov/postcache/internal/record"
)

const redactedPlaceholder = "[REDACTED]"

// Redactor replaces pattern matches with a placeholder. A nil Redactor is a no-op.
type Redactor struct {
	patterns []*regexp.Regexp
}

// New compiles patterns. Returns an error naming the first invalid pattern.
func New(patterns []string) (*Redactor, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile redact pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Redactor{patterns: compiled}, nil
}

// Text replaces all matches in text with [REDACTED].
func (r *Redactor) Text(text string) string {
	if r == nil {
		return text
	}
	for _, re := range r.patterns {
		text = re.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

// Records returns a redacted copy of records. The input is not modified.
func (r *Redactor) Records(records []record.Record) []record.Record {
	out := make([]record.Record, len(records))
	for i, rec := range records {
		out[i] = record.Record{ID: rec.ID, Text: r.Text(rec.Text)}
	}
	return out
}
