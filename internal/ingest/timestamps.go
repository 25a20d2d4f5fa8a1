package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Epoch values below this are treated as seconds and scaled to milliseconds.
// 1e11 ms is March 1973; no real trade timestamp in milliseconds is earlier.
const millisThreshold = 1e11

// sqlTimestampPattern matches "YYYY-MM-DD HH:MM:SS[.ffffff][+TZ]" exports.
// The timezone suffix is stripped before parsing; this discards the offset
// rather than applying it. Known-lossy, kept deliberately: downstream
// consumers of the original exports already compensate for it.
var sqlTimestampPattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d{1,9})?)(?:\s*[+-]\d{2}:?\d{2})?$`,
)

// genericLayouts are tried in order when a string is neither ISO-8601 nor
// the recognized SQL export format.
var genericLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
}

// ParseTimestamp normalizes any timestamp representation a source may
// deliver to epoch milliseconds. Numeric values are interpreted as epoch
// seconds or milliseconds by magnitude; strings follow the dialect policy
// above. Unparseable values fall back to now rather than failing the record.
func ParseTimestamp(val interface{}, now time.Time) int64 {
	switch v := val.(type) {
	case nil:
		return now.UnixMilli()
	case time.Time:
		return v.UnixMilli()
	case string:
		return parseTimestampString(v, now)
	default:
		epoch := getFloat64FromValue(val)
		if epoch <= 0 {
			return now.UnixMilli()
		}
		if epoch < millisThreshold {
			return int64(epoch * 1000)
		}
		return int64(epoch)
	}
}

func parseTimestampString(s string, now time.Time) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UnixMilli()
	}

	// Bare numbers are epoch seconds or milliseconds
	if epoch, err := strconv.ParseFloat(s, 64); err == nil {
		if epoch <= 0 {
			return now.UnixMilli()
		}
		if epoch < millisThreshold {
			return int64(epoch * 1000)
		}
		return int64(epoch)
	}

	// ISO-8601 parses directly
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UnixMilli()
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UnixMilli()
	}

	// SQL-style export timestamps: strip the timezone suffix, parse as UTC
	if matches := sqlTimestampPattern.FindStringSubmatch(s); matches != nil {
		stripped := matches[1]
		layout := "2006-01-02 15:04:05"
		if strings.Contains(stripped, ".") {
			layout = "2006-01-02 15:04:05.999999999"
		}
		if ts, err := time.ParseInLocation(layout, stripped, time.UTC); err == nil {
			return ts.UnixMilli()
		}
	}

	// Generic date parsing, best effort
	for _, layout := range genericLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UnixMilli()
		}
	}

	return now.UnixMilli()
}
