package digest

import (
	"encoding/json"
	"io"
	"strconv"
)

type jsonOutput struct {
	Meta    jsonMeta     `json:"meta"`
	Records []jsonRecord `json:"records"`
}

type jsonMeta struct {
	Account  string `json:"account"`
	Provider string `json:"provider"`
	Origin   string `json:"origin"`
	Filter   string `json:"filter,omitempty"`
	Total    int    `json:"total"`
	Count    int    `json:"count"`
}

type jsonRecord struct {
	// IDs are strings so 64-bit values survive JavaScript consumers.
	ID   string `json:"id"`
	Text string `json:"text"`
}

// JSONFormatter formats records as JSON.
type JSONFormatter struct{}

// NewJSON creates a JSON formatter.
func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the records as JSON to w.
func (f *JSONFormatter) Format(w io.Writer, input Input) error {
	out := jsonOutput{
		Meta: jsonMeta{
			Account:  input.Account,
			Provider: input.Provider,
			Origin:   origin(input.FromSnapshot),
			Filter:   input.Filter,
			Total:    input.Total,
			Count:    len(input.Records),
		},
		Records: make([]jsonRecord, 0, len(input.Records)),
	}
	for _, r := range input.Records {
		out.Records = append(out.Records, jsonRecord{ID: strconv.FormatInt(r.ID, 10), Text: r.Text})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
