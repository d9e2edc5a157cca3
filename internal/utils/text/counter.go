// Package text provides small rune-aware string helpers shared by the
// fetch pipeline and the summarizers.
package text

import "strings"

// CountRunes counts the number of Unicode characters (runes) in the given text.
// Multi-byte characters (CJK, emoji) count as one each.
//
//	CountRunes("hello")     // 5
//	CountRunes("hello世界")  // 7
//	CountRunes("")          // 0
func CountRunes(text string) int {
	return len([]rune(text))
}

// Truncate shortens s to at most max runes. It never splits a multi-byte
// character. max <= 0 returns the empty string.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// CollapseWhitespace trims s and folds every run of whitespace into a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
