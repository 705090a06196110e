package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/skaul-dev/billextract/constants"
	"github.com/skaul-dev/billextract/internal/entity"
)

var (
	// numeric tokens, optional thousands separators and decimal part
	reNumber = regexp.MustCompile(`\d+(?:,\d{3})*(?:\.\d+)?`)
	// date-like substrings (12/04/2023, 1-4-23, 12.04.23)
	reDate = regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}\b`)
)

// Quantities outside this range are treated as misreads and the line rejected.
const (
	maxQuantity = 1000.0
	// year exclusion window: bare 4-digit integers in this range are far
	// more likely calendar years than monetary values. A genuine rate equal
	// to a year value is indistinguishable under this rule and gets dropped.
	yearMin = 1900
	yearMax = 2100
)

// Options configures a LineParser. Zero value selects the canonical
// keyword and artifact lists.
type Options struct {
	NoiseKeywords      []string
	ArtifactSubstrings []string
}

// LineParser converts raw OCR text lines into validated line items.
// It is stateless per call and safe for concurrent use.
type LineParser struct {
	noise     *NoiseFilter
	artifacts []string
}

func New(opts Options) *LineParser {
	artifacts := opts.ArtifactSubstrings
	if len(artifacts) == 0 {
		artifacts = DefaultArtifactSubstrings
	}
	return &LineParser{
		noise:     NewNoiseFilter(opts.NoiseKeywords),
		artifacts: artifacts,
	}
}

type numToken struct {
	value float64
	start int
}

// ParseLine extracts a line item from a single text line. The second return
// is false when the line is noise or fails a sanity check; that is an
// expected filtering outcome, not an error.
func (p *LineParser) ParseLine(line string) (entity.LineItem, bool) {
	if p.noise.IsNoise(line) {
		return entity.LineItem{}, false
	}

	tokens := extractNumbers(line)
	if len(tokens) == 0 {
		return entity.LineItem{}, false
	}

	quantity, rate, amount := disambiguate(tokens)

	if quantity <= 0 || quantity > maxQuantity {
		return entity.LineItem{}, false
	}
	if amount <= 0 {
		return entity.LineItem{}, false
	}

	name := itemName(line, p.artifacts)
	if name == "" {
		return entity.LineItem{}, false
	}

	return entity.LineItem{
		Name:     name,
		Quantity: quantity,
		Rate:     rate,
		Amount:   amount,
	}, true
}

// ParseLines runs ParseLine over a page's lines, keeping accepted items in order.
func (p *LineParser) ParseLines(lines []string) []entity.LineItem {
	items := make([]entity.LineItem, 0, len(lines))
	for _, line := range lines {
		if item, ok := p.ParseLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// ParsePage parses one page's lines and classifies its type from the text.
func (p *LineParser) ParsePage(pageNo int, lines []string) entity.Page {
	return entity.Page{
		PageNo:   strconv.Itoa(pageNo),
		PageType: constants.ClassifyPageText(lines),
		Items:    p.ParseLines(lines),
	}
}

// extractNumbers finds numeric tokens left to right, masking date substrings
// first so their components are never misread as quantities or rates, and
// dropping bare integers that look like calendar years.
func extractNumbers(line string) []numToken {
	masked := maskDates(line)

	var tokens []numToken
	for _, span := range reNumber.FindAllStringIndex(masked, -1) {
		text := masked[span[0]:span[1]]
		value := SanitizeNumber(text)
		if isBareYear(text, value) {
			continue
		}
		tokens = append(tokens, numToken{value: value, start: span[0]})
	}
	return tokens
}

// maskDates blanks date-like substrings in place, preserving every other
// character's offset.
func maskDates(line string) string {
	spans := reDate.FindAllStringIndex(line, -1)
	if len(spans) == 0 {
		return line
	}
	b := []byte(line)
	for _, span := range spans {
		for i := span[0]; i < span[1]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

func isBareYear(text string, value float64) bool {
	if strings.ContainsAny(text, ".,") {
		return false
	}
	return value == math.Trunc(value) && value >= yearMin && value <= yearMax
}

// disambiguate assigns quantity, rate, and amount from the ordered numeric
// tokens. Precedence: exact multiplicative match first, then the
// small-integer-quantity heuristic, then equality-to-amount, then the
// default of quantity 1 with the amount as rate.
func disambiguate(tokens []numToken) (quantity, rate, amount float64) {
	n := len(tokens)
	if n == 1 {
		v := tokens[0].value
		return 1.0, v, v
	}

	candAmount := tokens[n-1].value
	cand2 := tokens[n-2].value

	if n >= 3 {
		cand3 := tokens[n-3].value
		// Quantity-first ordering (qty=cand3, rate=cand2) is checked first;
		// the reversed assignment can never win separately because the
		// product is the same either way.
		if math.Abs(cand3*cand2-candAmount) < amountTolerance(candAmount) {
			return cand3, cand2, candAmount
		}
		// Math did not check out; trust the last token as the amount and
		// treat cand3 as a quantity only when it looks like one. Otherwise
		// it is likely a serial number or code.
		if cand3 <= 100 && isWhole(cand3) {
			return cand3, safeDivide(candAmount, cand3), candAmount
		}
		return 1.0, candAmount, candAmount
	}

	// Two numbers: small integers read as quantity, a value equal to the
	// amount reads as rate, anything else is discarded as noise.
	if cand2 <= 50 && isWhole(cand2) {
		return cand2, safeDivide(candAmount, cand2), candAmount
	}
	if math.Abs(cand2-candAmount) < 0.1 {
		return 1.0, cand2, candAmount
	}
	return 1.0, candAmount, candAmount
}

// amountTolerance is the multiplicative-match window: one currency unit or
// 5% of the amount, whichever is larger.
func amountTolerance(amount float64) float64 {
	return math.Max(1.0, 0.05*amount)
}

func isWhole(v float64) bool {
	return v == math.Trunc(v)
}

func safeDivide(amount, quantity float64) float64 {
	if quantity > 0 {
		return amount / quantity
	}
	return amount
}

// punctuated serial prefixes like "12." or "3)" that precede the real name
var reSerialLead = regexp.MustCompile(`^\s*\d+\s*[.\-)]\s*`)

// itemName takes the text before the first numeric match on the raw line
// (dates and excluded years included, matching how bills label columns) and
// cleans it into an item name. A punctuated leading serial number is skipped
// first so it is not mistaken for the name boundary.
func itemName(line string, artifacts []string) string {
	rest := line
	if m := reSerialLead.FindStringIndex(line); m != nil {
		rest = line[m[1]:]
	}
	prefix := rest
	if loc := reNumber.FindStringIndex(rest); loc != nil {
		prefix = rest[:loc[0]]
	}
	return cleanName(prefix, artifacts)
}
