// Package dedup keeps repeated imports idempotent: given the set of leg ids
// a caller already knows, it splits an incoming batch into genuinely new
// legs and re-deliveries. The pipeline holds no memory of past imports;
// known ids always come from the caller's store.
package dedup

import "github.com/alevras/tally/internal/domain"

// KnownIDs is a set of leg ids already present in the caller's store
type KnownIDs map[string]struct{}

// NewKnownIDs builds the set from a slice of ids
func NewKnownIDs(ids []string) KnownIDs {
	known := make(KnownIDs, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return known
}

// Contains reports whether an id is already known
func (k KnownIDs) Contains(id string) bool {
	_, ok := k[id]
	return ok
}

// Add marks an id as known
func (k KnownIDs) Add(id string) {
	k[id] = struct{}{}
}

// Split partitions a batch into fresh legs and duplicates. A leg is a
// duplicate when its id (source-supplied or synthesized) is already known,
// or when an earlier leg in the same batch carries the same id - the same
// file uploaded twice concatenated counts its rows once. Order within each
// partition follows the input.
func Split(legs []domain.TradeLeg, known KnownIDs) (fresh, duplicates []domain.TradeLeg) {
	seen := make(map[string]struct{}, len(legs))

	for _, leg := range legs {
		if known.Contains(leg.ID) {
			duplicates = append(duplicates, leg)
			continue
		}
		if _, inBatch := seen[leg.ID]; inBatch {
			duplicates = append(duplicates, leg)
			continue
		}
		seen[leg.ID] = struct{}{}
		fresh = append(fresh, leg)
	}

	return fresh, duplicates
}
