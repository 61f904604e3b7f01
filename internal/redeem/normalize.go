package redeem

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// MaxCodeLength bounds the stored code column.
const MaxCodeLength = 32

// DefaultPrefixes are the storefront decorations printed in front of codes.
var DefaultPrefixes = []string{"SALLA-", "MRW-"}

var upper = cases.Upper(language.Und)

// NormalizeCode canonicalises user input into the stored code form. It folds
// full-width characters, maps Arabic-Indic digits to ASCII, upper-cases,
// removes whitespace and strips the first matching cosmetic prefix.
func NormalizeCode(raw string, prefixes []string) string {
	s := width.Fold.String(strings.TrimSpace(raw))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case unicode.IsSpace(r):
			return -1
		}
		return r
	}, s)
	s = upper.String(s)

	for _, p := range prefixes {
		p = upper.String(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(s, p) {
			s = strings.TrimPrefix(s, p)
			break
		}
	}
	return s
}
