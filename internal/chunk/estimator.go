package chunk

import "unicode/utf8"

// TokenEstimator approximates how many model tokens a text consumes.
// The estimate only governs chunk sizing, not correctness, so a cheap
// heuristic is acceptable. Implementations must return 0 for the empty
// string and be monotonically non-decreasing in input length.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator estimates tokens as ceil(characters/4), the common rule of
// thumb for English text. Characters are Unicode runes, not bytes.
type CharEstimator struct{}

// Estimate implements TokenEstimator.
func (CharEstimator) Estimate(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
