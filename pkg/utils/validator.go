package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds free text typed into the chat (requirements, comments)
const MaxTextLength = 1000

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)

// SanitizeText strips control characters except newline and tab, trims
// surrounding space and cuts the text to MaxTextLength runes.
func SanitizeText(s string) string {
	s = strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
	if utf8.RuneCountInString(s) <= MaxTextLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:MaxTextLength]))
}

// SanitizeLine is SanitizeText for single-line values such as names and rooms
func SanitizeLine(s string) string {
	return strings.Join(strings.Fields(SanitizeText(s)), " ")
}
