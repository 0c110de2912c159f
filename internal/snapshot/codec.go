package snapshot

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ppiankov/postcache/internal/record"
)

var (
	errFieldCount  = errors.New("want 2 fields (id, text)")
	errBareQuote   = errors.New(`bare " in unquoted field`)
	errAfterQuote  = errors.New(`extraneous character after quoted field`)
	errUnterminate = errors.New(`quoted field not terminated`)
)

// writeRecords encodes records as two-column CSV rows with LF terminators.
// Fields containing a comma, quote, CR or LF are quoted and embedded quotes
// doubled.
func writeRecords(w io.Writer, records []record.Record) error {
	cw := csv.NewWriter(w)
	row := make([]string, 2)
	for _, r := range records {
		row[0] = strconv.FormatInt(r.ID, 10)
		row[1] = r.Text
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// readRecords decodes rows written by writeRecords. Unlike csv.Reader it
// keeps CR bytes inside quoted fields, so text with CRLF survives a round trip.
// Blank lines are skipped.
func readRecords(r io.Reader) ([]record.Record, error) {
	rr := &rowReader{r: bufio.NewReader(r)}
	records := []record.Record{}

	for {
		fields, line, err := rr.next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if len(fields) == 1 && fields[0] == "" {
			continue
		}
		if len(fields) != 2 {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("%w, got %d", errFieldCount, len(fields))}
		}

		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("invalid id %q: %w", fields[0], err)}
		}
		records = append(records, record.Record{ID: id, Text: fields[1]})
	}
}

type rowReader struct {
	r    *bufio.Reader
	line int
}

// next returns the fields of the next row and the line it started on.
// Read failures from the underlying reader are returned unwrapped so the
// caller can classify them as I/O errors.
func (rr *rowReader) next() ([]string, int, error) {
	if _, err := rr.r.Peek(1); err != nil {
		return nil, 0, err
	}
	rr.line++
	start := rr.line

	var fields []string
	var field strings.Builder

	for {
		field.Reset()
		c, err := rr.r.ReadByte()
		if err == nil && c == '"' {
			end, err := rr.readQuoted(&field, start)
			if err != nil {
				return nil, start, err
			}
			fields = append(fields, field.String())
			if end {
				return fields, start, nil
			}
			continue
		}
		if err == nil {
			_ = rr.r.UnreadByte()
		}

		end, err := rr.readUnquoted(&field, start)
		if err != nil {
			return nil, start, err
		}
		fields = append(fields, field.String())
		if end {
			return fields, start, nil
		}
	}
}

// readUnquoted consumes up to the next comma or line end. It reports whether
// the row ended.
func (rr *rowReader) readUnquoted(field *strings.Builder, start int) (bool, error) {
	for {
		c, err := rr.r.ReadByte()
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		switch c {
		case ',':
			return false, nil
		case '\n':
			return true, nil
		case '\r':
			next, err := rr.r.Peek(1)
			if err == nil && next[0] == '\n' {
				_, _ = rr.r.ReadByte()
				return true, nil
			}
			field.WriteByte(c)
		case '"':
			return false, &ParseError{Line: start, Err: errBareQuote}
		default:
			field.WriteByte(c)
		}
	}
}

// readQuoted consumes a quoted field body after its opening quote and the
// delimiter that follows the closing quote.
func (rr *rowReader) readQuoted(field *strings.Builder, start int) (bool, error) {
	for {
		c, err := rr.r.ReadByte()
		if errors.Is(err, io.EOF) {
			return false, &ParseError{Line: start, Err: errUnterminate}
		}
		if err != nil {
			return false, err
		}
		if c == '\n' {
			rr.line++
		}
		if c != '"' {
			field.WriteByte(c)
			continue
		}

		next, err := rr.r.ReadByte()
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		switch next {
		case '"':
			field.WriteByte('"')
		case ',':
			return false, nil
		case '\n':
			return true, nil
		case '\r':
			after, err := rr.r.ReadByte()
			if err == nil && after == '\n' {
				return true, nil
			}
			return false, &ParseError{Line: start, Err: errAfterQuote}
		default:
			return false, &ParseError{Line: start, Err: errAfterQuote}
		}
	}
}
