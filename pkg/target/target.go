// Package target pulls scan targets out of free-form operator text.
package target

import "regexp"

// Four dot-separated groups of 1-3 digits. Octets are not range-checked, so
// "999.1.1.1" still counts as a target.
var ipv4Pattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// ExtractIPv4 returns the first dotted-quad in text, scanning left to right.
func ExtractIPv4(text string) (string, bool) {
	m := ipv4Pattern.FindString(text)
	if m == "" {
		return "", false
	}
	return m, true
}

// ExtractAllIPv4 returns every dotted-quad in order of appearance.
func ExtractAllIPv4(text string) []string {
	return ipv4Pattern.FindAllString(text, -1)
}
