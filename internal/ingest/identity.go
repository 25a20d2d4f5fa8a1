package ingest

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// base58Alphabet is the Bitcoin/Solana base58 character set (no 0, O, I, l)
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// IsMintAddress reports whether a token string looks like a base58 mint
// address (32-44 characters over the base58 alphabet) rather than a
// human-readable symbol.
func IsMintAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

// DexScreenerURL derives the chart reference URL for a mint address
func DexScreenerURL(tokenAddress string) string {
	if tokenAddress == "" {
		return ""
	}
	return "https://dexscreener.com/solana/" + tokenAddress
}

// SynthesizeID derives a stable leg identity from the fields every source
// shape carries: token identity, normalized timestamp and entry price
// (rounded to 6 decimals so float formatting differences between sources
// cannot split one logical event into two ids). Re-normalizing the same
// logical event always yields the same id, which is what keeps repeated
// imports idempotent.
func SynthesizeID(token string, timestampMs int64, entryPrice float64) string {
	if token == "" && timestampMs == 0 && entryPrice == 0 {
		// Nothing stable to derive from; a random id at least keeps the
		// leg addressable within this run.
		return "leg-" + uuid.New().String()
	}
	priceMicros := int64(math.Round(entryPrice * 1e6))
	return fmt.Sprintf("%s-%d-%d", strings.ToUpper(token), timestampMs, priceMicros)
}
