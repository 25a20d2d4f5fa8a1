package importer

import (
	"strings"
)

// normalizeHeader lowercases a header cell and strips the separators that
// vary between export tools, so "Token Symbol", "token_symbol" and
// "TokenSymbol" all detect as "tokensymbol".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Trim(h, `"`)
	for _, sep := range []string{" ", "_", "-", ".", "/"} {
		h = strings.ReplaceAll(h, sep, "")
	}
	return h
}

// splitCSVLine splits one CSV line honoring double-quoted fields: commas
// inside quotes are not delimiters, and doubled quotes inside a quoted
// field unescape to one quote. An unterminated quote makes the line
// malformed.
func splitCSVLine(line string) ([]string, error) {
	var fields []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if inQuotes {
		return nil, errUnterminatedQuote
	}
	fields = append(fields, strings.TrimSpace(current.String()))
	return fields, nil
}

// detectDialect tests the normalized header row against known dialect
// signatures. A specific dialect matches only when every family in its
// signature is present; otherwise the generic alias table applies.
func detectDialect(headers []string) Dialect {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	if signatureMatches(tokenBotFamilies, tokenBotSignature, present) {
		return DialectTokenBot
	}
	if signatureMatches(positionFamilies, positionSignature, present) {
		return DialectPosition
	}
	return DialectGeneric
}

func signatureMatches(families []headerFamily, signature []string, present map[string]bool) bool {
	for _, canonical := range signature {
		if !familyPresent(families, canonical, present) {
			return false
		}
	}
	return true
}

func familyPresent(families []headerFamily, canonical string, present map[string]bool) bool {
	for _, fam := range families {
		if fam.canonical != canonical {
			continue
		}
		for _, h := range fam.headers {
			if present[h] {
				return true
			}
		}
	}
	return false
}

// buildColumnMap resolves each header position to its canonical field name
// for the detected dialect. Columns not covered by any family keep their
// normalized header name, so the normalizer's own alias tables get a chance
// at them; they resolve to defaults downstream rather than raising.
func buildColumnMap(headers []string, d Dialect) []string {
	families := dialectFamilies(d)
	byHeader := make(map[string]string)
	for _, fam := range families {
		for _, h := range fam.headers {
			if _, taken := byHeader[h]; !taken {
				byHeader[h] = fam.canonical
			}
		}
	}

	columns := make([]string, len(headers))
	for i, h := range headers {
		if canonical, ok := byHeader[h]; ok {
			columns[i] = canonical
		} else {
			columns[i] = h
		}
	}
	return columns
}
