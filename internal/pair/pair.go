package pair

// Canonical returns the unordered pair (a, b) in canonical (low, high) order.
// Matches and conversations are keyed by the canonical pair so both write
// orders map to the same storage row.
func Canonical(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Other returns the participant of the canonical pair that is not userID.
func Other(a, b, userID uint64) uint64 {
	if a == userID {
		return b
	}
	return a
}
