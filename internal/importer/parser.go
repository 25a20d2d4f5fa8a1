// Package importer detects which known export dialect a raw CSV or JSON
// batch is in and parses it into near-canonical records for normalization.
// Per-record problems are collected, never thrown: only an input-level
// failure (empty file, broken top-level JSON) aborts a batch.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alevras/tally/internal/ingest"
)

var errUnterminatedQuote = errors.New("unterminated quoted field")

// ParsedRecord is one raw record plus its 1-based position in the input,
// preserved for user-facing error reporting.
type ParsedRecord struct {
	Fields ingest.RawRecord
	Line   int
}

// ParseResult is the outcome of one batch parse. ErrorCount counts records
// that were malformed beyond field mapping and skipped; they are not in
// Records and not silently merged into the valid set.
type ParseResult struct {
	Records    []ParsedRecord
	Dialect    Dialect
	ErrorCount int
}

// Parse ingests raw batch text, sniffing CSV vs JSON from the first
// non-space byte. An explicit dialect hint skips detection for CSV inputs.
func Parse(text string, hint Dialect) (*ParseResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty import: no records to parse")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return ParseJSON(text)
	}
	return ParseCSV(text, hint)
}

// ParseCSV parses comma-delimited text whose first non-blank line is the
// header row. The dialect is detected from the normalized headers unless
// hinted. Records are numbered by their physical position below the header
// so reported line numbers match what the user counts in their file; blank
// lines are skipped but still occupy a position.
func ParseCSV(text string, hint Dialect) (*ParseResult, error) {
	lines := strings.Split(text, "\n")
	headerIdx := -1
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
		if headerIdx < 0 && strings.TrimSpace(lines[i]) != "" {
			headerIdx = i
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("empty import: no records to parse")
	}

	rawHeaders, err := splitCSVLine(lines[headerIdx])
	if err != nil {
		return nil, fmt.Errorf("malformed header row: %w", err)
	}
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = normalizeHeader(h)
	}

	dialect := hint
	if dialect == DialectAuto || dialect == DialectJSON {
		dialect = detectDialect(headers)
	}
	columns := buildColumnMap(headers, dialect)

	result := &ParseResult{Dialect: dialect}
	for i := headerIdx + 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		recordNum := i - headerIdx // 1-based position below the header

		fields, err := splitCSVLine(line)
		if err != nil || len(fields) != len(columns) {
			result.ErrorCount++
			continue
		}

		record := make(ingest.RawRecord, len(columns))
		for col, value := range fields {
			if value == "" {
				continue
			}
			record[columns[col]] = value
		}
		if len(record) == 0 {
			result.ErrorCount++
			continue
		}
		result.Records = append(result.Records, ParsedRecord{Fields: record, Line: recordNum})
	}

	return result, nil
}

// ParseJSON parses either a single record object or an array of record
// objects. Array elements that are not objects count as record errors;
// broken top-level syntax fails the batch.
func ParseJSON(text string) (*ParseResult, error) {
	var payload interface{}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON import: %w", err)
	}

	result := &ParseResult{Dialect: DialectJSON}
	switch v := payload.(type) {
	case map[string]interface{}:
		result.Records = append(result.Records, ParsedRecord{Fields: v, Line: 1})
	case []interface{}:
		for i, item := range v {
			record, ok := item.(map[string]interface{})
			if !ok {
				result.ErrorCount++
				continue
			}
			result.Records = append(result.Records, ParsedRecord{Fields: record, Line: i + 1})
		}
	default:
		return nil, fmt.Errorf("invalid JSON import: expected object or array, got %T", payload)
	}

	return result, nil
}
