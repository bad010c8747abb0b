package utils

import "unicode/utf8"

// Truncate caps a string at n bytes without splitting a multi-byte rune.
// Used to bound header-derived values (user agents, search queries) before
// they reach logs or session records.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
