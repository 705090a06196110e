package parser

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultArtifactSubstrings are OCR artifacts that show up glued to item
// names on scanned bills.
var DefaultArtifactSubstrings = []string{"$G", "RR"}

// leading serial numbers like "12.", "3)", "7 -"
var reSerialPrefix = regexp.MustCompile(`^\d+\s*[.\-)]?\s*`)

// minNameLength rejects names too short to identify a charge.
const minNameLength = 3

// cleanName normalizes the non-numeric prefix of a line into an item name.
// Returns "" when nothing usable remains.
func cleanName(raw string, artifacts []string) string {
	name := strings.Trim(raw, " :-\t|,")
	name = reSerialPrefix.ReplaceAllString(name, "")
	for _, a := range artifacts {
		name = strings.ReplaceAll(name, a, "")
	}
	name = foldDiacritics(name)
	name = strings.TrimSpace(name)
	if len([]rune(name)) < minNameLength {
		return ""
	}
	return name
}

// foldDiacritics strips combining marks that OCR occasionally invents on
// plain-ASCII bills (é for e, ñ for n).
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
