package logutil

// TruncateForLog shortens s to at most maxLen characters for a log field,
// marking the cut with "...". It never splits a multi-byte character.
func TruncateForLog(s string, maxLen int) string {
	if maxLen <= 0 {
		return "..."
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
