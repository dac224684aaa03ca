// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package memory

// TruncationMarker is appended to turns shortened for storage.
const TruncationMarker = "[Response truncated for memory storage]"

// Summarize shortens text to roughly max characters before it is stored.
// It prefers to cut after the last sentence end when that falls beyond 70%
// of max, then at the last space beyond 80%, and otherwise cuts hard. A
// marker is appended whenever text was shortened. Positions are counted in
// runes.
func Summarize(text string, max int) string {
	r := []rune(text)
	if max <= 0 || len(r) <= max {
		return text
	}

	truncated := r[:max]
	lastSentence := lastRuneIndex(truncated, func(c rune) bool { return c == '.' || c == '!' || c == '?' })
	if float64(lastSentence) > float64(max)*0.7 {
		return string(truncated[:lastSentence+1]) + " " + TruncationMarker
	}

	lastSpace := lastRuneIndex(truncated, func(c rune) bool { return c == ' ' })
	if float64(lastSpace) > float64(max)*0.8 {
		return string(truncated[:lastSpace]) + "... " + TruncationMarker
	}
	return string(truncated) + "... " + TruncationMarker
}

func lastRuneIndex(r []rune, match func(rune) bool) int {
	for i := len(r) - 1; i >= 0; i-- {
		if match(r[i]) {
			return i
		}
	}
	return -1
}
