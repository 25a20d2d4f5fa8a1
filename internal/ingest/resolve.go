package ingest

// Exported resolution helpers for callers that need individual canonical
// fields off a raw record without normalizing the whole thing (the batch
// validator reports violations in terms of the record, pre-normalization).

// TokenIdentity resolves the record's token identity into symbol and mint
// address, applying the base58 reroute.
func TokenIdentity(raw RawRecord) (symbol, address string) {
	return resolveToken(raw)
}

// Quantity resolves the record's quantity, 0 when absent or unparseable
func Quantity(raw RawRecord) float64 {
	return resolveFloat(raw, quantityAliases, 0)
}

// EntryPrice resolves the record's entry price, 0 when absent or unparseable
func EntryPrice(raw RawRecord) float64 {
	return resolveFloat(raw, entryPriceAliases, 0)
}

// ExitPrice resolves the record's exit price, defaulting to the entry price
// when the source omits it.
func ExitPrice(raw RawRecord) float64 {
	if exit := resolveFloat(raw, exitPriceAliases, 0); exit != 0 {
		return exit
	}
	return EntryPrice(raw)
}
