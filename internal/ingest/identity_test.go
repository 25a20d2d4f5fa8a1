package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMintAddress(t *testing.T) {
	// Real BONK mint, 44 characters
	assert.True(t, IsMintAddress("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"))
	// 32 characters is the lower bound
	assert.True(t, IsMintAddress(strings.Repeat("A", 32)))

	// Too short / too long
	assert.False(t, IsMintAddress("BONK"))
	assert.False(t, IsMintAddress(strings.Repeat("A", 31)))
	assert.False(t, IsMintAddress(strings.Repeat("A", 45)))
	// 0, O, I and l are not base58
	assert.False(t, IsMintAddress(strings.Repeat("A", 40)+"0000"))
	assert.False(t, IsMintAddress(strings.Repeat("O", 32)))
	// A 14-character arbitrary string is a symbol, not an address
	assert.False(t, IsMintAddress("SUPERLONGTOKEN"))
}

func TestSynthesizeIDDeterministic(t *testing.T) {
	a := SynthesizeID("BONK", 1717243200000, 0.0123)
	b := SynthesizeID("BONK", 1717243200000, 0.0123)
	assert.Equal(t, a, b)
	assert.Equal(t, "BONK-1717243200000-12300", a)

	// Case differences in the token do not split identities
	assert.Equal(t, a, SynthesizeID("bonk", 1717243200000, 0.0123))

	// Price rounding absorbs float formatting noise past 6 decimals
	assert.Equal(t, a, SynthesizeID("BONK", 1717243200000, 0.0123000000001))

	// But real differences produce distinct ids
	assert.NotEqual(t, a, SynthesizeID("BONK", 1717243200001, 0.0123))
	assert.NotEqual(t, a, SynthesizeID("BONK", 1717243200000, 0.0124))
	assert.NotEqual(t, a, SynthesizeID("WIF", 1717243200000, 0.0123))
}

func TestSynthesizeIDNoInputs(t *testing.T) {
	// With nothing stable to derive from, ids are random but non-empty
	a := SynthesizeID("", 0, 0)
	b := SynthesizeID("", 0, 0)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "leg-"))
}

func TestDexScreenerURL(t *testing.T) {
	assert.Equal(t,
		"https://dexscreener.com/solana/DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		DexScreenerURL("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"))
	assert.Empty(t, DexScreenerURL(""))
}
