package assembler

import "unicode/utf8"

// charsPerToken is the heuristic ratio used for all budgeting: one token
// approximates four characters of text. The estimate is intentionally
// rough; every truncation decision uses the same estimator, so relative
// decisions stay coherent even when the absolute count is biased.
const charsPerToken = 4

// truncationMarker is appended (or prepended) wherever text was hard-cut.
const truncationMarker = "..."

// EstimateTokens returns a deterministic, monotonic token estimate for
// text. Empty text estimates to zero.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// TruncateText hard-cuts text so its estimated token count does not
// exceed maxTokens, adding a truncation marker. With preserveEnding the
// tail of the text survives instead of the head. Text already within
// budget is returned unchanged, so re-truncating is a no-op.
func TruncateText(text string, maxTokens int, preserveEnding bool) string {
	if EstimateTokens(text) <= maxTokens {
		return text
	}

	maxChars := maxTokens * charsPerToken
	if maxChars <= len(truncationMarker) {
		// Not enough room for any content beside the marker.
		if maxChars <= 0 {
			return ""
		}
		return truncationMarker[:maxChars]
	}

	keep := maxChars - len(truncationMarker)
	if preserveEnding {
		return truncationMarker + cutTail(text, keep)
	}
	return cutHead(text, keep) + truncationMarker
}

// cutHead returns at most n leading bytes of s, cut at a rune boundary.
func cutHead(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// cutTail returns at most n trailing bytes of s, cut at a rune boundary.
func cutTail(s string, n int) string {
	if n >= len(s) {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
