package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is one untyped record as delivered by a source: a parsed CSV row,
// a JSON object, a webhook payload or a live-feed event body.
type RawRecord = map[string]interface{}

// getString safely extracts a string value from a record
func getString(m RawRecord, key string) string {
	if val, exists := m[key]; exists {
		if str, ok := val.(string); ok {
			return str
		}
		if val == nil {
			return ""
		}
		// Convert other scalar types to string
		return fmt.Sprintf("%v", val)
	}
	return ""
}

// getFloat64 safely extracts a float64 value from a record.
// Unparseable values resolve to 0, never NaN, and never abort the record.
func getFloat64(m RawRecord, key string) float64 {
	if val, exists := m[key]; exists {
		return getFloat64FromValue(val)
	}
	return 0.0
}

// getFloat64FromValue safely converts a value to float64
func getFloat64FromValue(val interface{}) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case string:
		// Export files and some webhooks deliver numeric fields as strings
		cleaned := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if cleaned == "" {
			return 0.0
		}
		if floatVal, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return floatVal
		}
		return 0.0
	default:
		return 0.0
	}
}

// resolveString returns the first non-empty string among the aliased keys
func resolveString(m RawRecord, aliases []string) string {
	for _, key := range aliases {
		if val := strings.TrimSpace(getString(m, key)); val != "" {
			return val
		}
	}
	return ""
}

// resolveFloat returns the value of the first aliased key that parses to a
// non-zero float, or def when none does. A literal zero under the primary
// alias also resolves to def, matching the "first non-empty alias wins" rule:
// zero is indistinguishable from absent for the sources this pipeline ingests.
func resolveFloat(m RawRecord, aliases []string, def float64) float64 {
	for _, key := range aliases {
		if val, exists := m[key]; exists {
			if f := getFloat64FromValue(val); f != 0 {
				return f
			}
		}
	}
	return def
}

// resolveSignedFloat is resolveFloat for fields where negative values are
// meaningful (P&L): the first alias that is present and parseable wins,
// even when the parsed value is zero or negative.
func resolveSignedFloat(m RawRecord, aliases []string, def float64) float64 {
	for _, key := range aliases {
		val, exists := m[key]
		if !exists || val == nil {
			continue
		}
		if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return getFloat64FromValue(val)
	}
	return def
}

// resolveRaw returns the first present, non-nil value among the aliased keys
func resolveRaw(m RawRecord, aliases []string) (interface{}, bool) {
	for _, key := range aliases {
		if val, exists := m[key]; exists && val != nil {
			if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			return val, true
		}
	}
	return nil, false
}
