// Package record defines the minimal post representation kept by the cache.
package record

import "strings"

// Record is one cached post: its provider identifier and its text.
type Record struct {
	ID   int64
	Text string
}

// FilterByText returns the records whose text contains needle, in their
// original order. Matching is exact byte containment. The result is never nil.
func FilterByText(records []Record, needle string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(r.Text, needle) {
			out = append(out, r)
		}
	}
	return out
}
