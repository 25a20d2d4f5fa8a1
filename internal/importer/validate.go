package importer

import (
	"strings"

	"github.com/alevras/tally/internal/ingest"
)

// Validation reason strings, one per violated invariant
const (
	ReasonMissingToken      = "missing token"
	ReasonInvalidQuantity   = "invalid quantity"
	ReasonInvalidEntryPrice = "invalid entry price"
	ReasonInvalidExitPrice  = "invalid exit price"
)

// placeholderTokens are symbol values exports emit when the real symbol was
// never resolved; they identify nothing and fail validation.
var placeholderTokens = map[string]bool{
	"":        true,
	"unknown": true,
	"n/a":     true,
	"na":      true,
	"-":       true,
	"null":    true,
	"none":    true,
	"nil":     true,
}

// RecordError reports every invariant one record violates, keyed by its
// 1-based line number for user-facing display.
type RecordError struct {
	Line    int      `json:"line"`
	Reasons []string `json:"reasons"`
}

// ValidationResult splits a parsed batch into records fit for normalization
// and per-record violations. Every input record lands in exactly one of the
// two sets.
type ValidationResult struct {
	Valid  []ParsedRecord
	Errors []RecordError
}

// ValidCount returns the number of records that passed validation
func (r *ValidationResult) ValidCount() int {
	return len(r.Valid)
}

// Validate applies the business invariants to structurally parsed records:
// a non-placeholder token identity, positive quantity, positive entry price
// and positive exit price. Violations are collected with their specific
// reasons, never coerced to valid.
func Validate(records []ParsedRecord) *ValidationResult {
	result := &ValidationResult{}

	for _, record := range records {
		var reasons []string

		symbol, address := ingest.TokenIdentity(record.Fields)
		if address == "" && placeholderTokens[strings.ToLower(symbol)] {
			reasons = append(reasons, ReasonMissingToken)
		}
		if ingest.Quantity(record.Fields) <= 0 {
			reasons = append(reasons, ReasonInvalidQuantity)
		}
		if ingest.EntryPrice(record.Fields) <= 0 {
			reasons = append(reasons, ReasonInvalidEntryPrice)
		}
		if ingest.ExitPrice(record.Fields) <= 0 {
			reasons = append(reasons, ReasonInvalidExitPrice)
		}

		if len(reasons) > 0 {
			result.Errors = append(result.Errors, RecordError{Line: record.Line, Reasons: reasons})
			continue
		}
		result.Valid = append(result.Valid, record)
	}

	return result
}
