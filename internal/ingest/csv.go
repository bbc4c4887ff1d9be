// Package ingest reads the CSV export that carries embedded CAP documents.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
)

// ContentColumn holds the embedded CAP document.
const ContentColumn = "content"

// ErrNoRows is returned when the source yields no data rows.
var ErrNoRows = errors.New("source contains no rows")

// ReadResult is the outcome of reading one CSV source.
type ReadResult struct {
	Rows     []domain.RawRow
	Warnings int // malformed records skipped or repaired
}

// ReadRows parses r as a header-first CSV. Header names and cell values are
// trimmed. Malformed records are logged and skipped; only an empty result or
// an I/O failure is fatal.
func ReadRows(r io.Reader, logger *slog.Logger) (ReadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ReadResult{}, ErrNoRows
	}
	if err != nil {
		return ReadResult{}, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var result ReadResult
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logger.Warn("skipping malformed csv record", "line", parseErr.Line, "error", parseErr.Err)
				result.Warnings++
				continue
			}
			return ReadResult{}, fmt.Errorf("read csv: %w", err)
		}

		if len(record) != len(header) {
			line, _ := cr.FieldPos(0)
			logger.Warn("csv record field count mismatch", "line", line, "fields", len(record), "expected", len(header))
			result.Warnings++
		}

		row := make(domain.RawRow, len(header))
		for j, h := range header {
			if j < len(record) {
				row[h] = strings.TrimSpace(record[j])
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if len(result.Rows) == 0 {
		return result, ErrNoRows
	}
	return result, nil
}
