package parser

import (
	"regexp"
	"strings"
)

var (
	// Unicode whitespace, including NBSP, em spaces, \v and the
	// information separators PDF extractors leave behind.
	whitespaceRe = regexp.MustCompile(`[\s\v\p{Z}\x{85}\x{1c}-\x{1f}]+`)
	// A standalone run of one to three decimal digits in any script. The
	// neighbours are captured because RE2 has no lookaround.
	pageNumberRe = regexp.MustCompile(`(^|[^\p{L}\p{N}_])\p{Nd}{1,3}([^\p{L}\p{N}_]|$)`)
)

// CleanText collapses whitespace and strips stray 1-3 digit tokens left over
// from page numbering. Removed tokens leave their surrounding spaces behind.
func CleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = stripPageNumbers(text)
	return strings.TrimSpace(text)
}

// stripPageNumbers repeats the replacement until nothing matches, since a
// match consumes the separator the next token needs ("1 2 3").
func stripPageNumbers(text string) string {
	for {
		next := pageNumberRe.ReplaceAllString(text, "${1}${2}")
		if next == text {
			return text
		}
		text = next
	}
}
