package resolver

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// entitySuffixes matches one trailing corporate suffix token. The separator
// before the suffix is mandatory so stripping never reaches inside a word
// ("TechCorp" keeps its "Corp").
var entitySuffixes = regexp.MustCompile(
	`(?i)[\s,]+(LLC|L\.?L\.?C\.?|INC\.?|INCORPORATED|CORP\.?|CORPORATION|` +
		`CO\.?|COMPANY|LTD\.?|LIMITED|L\.?P\.?|LLP|L\.?L\.?P\.?|` +
		`PLLC|P\.?L\.?L\.?C\.?|P\.?C\.?|SA|S\.?A\.?S\.?|GMBH|AG|` +
		`SOLUTIONS|SYSTEMS|GROUP|HOLDINGS|INTERNATIONAL)\s*\.?\s*$`)

var multiSpace = regexp.MustCompile(`\s{2,}`)

var accentFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, folds accents, and collapses whitespace. "Pièrre
// Dubois" and "pierre dubois" normalize identically.
func Normalize(s string) string {
	if folded, _, err := transform.String(accentFold, s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = multiSpace.ReplaceAllString(s, " ")
	return s
}

// NormalizeCompany additionally strips trailing corporate suffixes so
// "Nextera Solutions Inc." matches "Nextera".
func NormalizeCompany(s string) string {
	n := Normalize(s)
	for {
		stripped := strings.TrimSpace(entitySuffixes.ReplaceAllString(n, ""))
		if stripped == n || stripped == "" {
			break
		}
		n = stripped
	}
	return n
}
