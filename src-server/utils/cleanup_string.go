package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// strips and collapses spaces, NFC-normalizes, removes dangling separators
// left behind after a date phrase was cut out of the middle of a sentence
func CleanupString(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " ,;:-–")
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
