// Package fields turns free-form listing text into quote field updates using a
// fixed, ordered set of independent pattern extractors.
package fields

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/feichai0017/quote-extractor/internal/models"
)

const (
	// MinPrice rejects small numbers caught by the price pattern (phone digits, counts).
	MinPrice = 1000.0

	// MinCaptureLength is the length a transmission or suspension description
	// must exceed to be kept. Pending product review; do not re-derive.
	MinCaptureLength = 3

	// ShortValueLength bounds the "short" variants shown in the quote summary.
	ShortValueLength = 15
)

// Extractor scans text for one semantic field. Match returns no candidates when
// nothing is found; Coerce, when set, converts or rejects a candidate value.
type Extractor struct {
	Name   string
	Fields []models.Field
	Match  func(text string) []models.FieldCandidate
	Coerce func(c models.FieldCandidate) (any, bool)
}

func (e Extractor) owns(f models.Field) bool {
	for _, own := range e.Fields {
		if own == f {
			return true
		}
	}
	return false
}

var (
	priceRe   = regexp.MustCompile(`(?i)(\$|precio|valor)[\s.:]?\s?([0-9][0-9,]*)(\.[0-9]{2})?`)
	yearRe    = regexp.MustCompile(`\b(20[12][0-9])\b`)
	// both cases spelled out: (?i) folds the Kelvin sign and long s into the class
	vinRe     = regexp.MustCompile(`\b[A-HJ-NPR-Za-hj-npr-z0-9]{17}\b`)
	mileageRe = regexp.MustCompile(`(?i)\b[0-9][0-9,]*[ \t]*(?:kms|km|millas|miles)\b`)
	transRe   = regexp.MustCompile(`(?i)\b(?:Eaton|Fuller|Allison|Tremec|Transmisi[oó]n)\b[ \t:]*([\p{L}\p{N}_\- \t]+)`)
	suspRe    = regexp.MustCompile(`(?i)\b(?:Suspensi[oó]n|Susp)\b\.?[ \t:]*([\p{L}\p{N}\- \t]+)`)
	towingRe  = regexp.MustCompile(`(?i)\b(?:Arrastre|Capacidad|Towing)[ \t:]*([0-9][0-9,]*[ \t]*(?:Lbs|Kg|Tons))`)
)

// DefaultExtractors returns the extractor set built from the compiled catalog.
func DefaultExtractors() []Extractor {
	return NewExtractors(DefaultCatalog())
}

// NewExtractors returns the ordered extractor set for catalog c.
func NewExtractors(c Catalog) []Extractor {
	return []Extractor{
		{
			Name:   "price",
			Fields: []models.Field{models.FieldPrice},
			Match:  matchPrice,
			Coerce: coercePrice,
		},
		{
			Name:   "year",
			Fields: []models.Field{models.FieldYear},
			Match:  submatch(yearRe, models.FieldYear, 1),
		},
		{
			Name:   "vin",
			Fields: []models.Field{models.FieldVIN},
			Match:  matchVIN,
		},
		{
			Name:   "mileage",
			Fields: []models.Field{models.FieldMileage},
			Match:  submatch(mileageRe, models.FieldMileage, 0),
		},
		{
			Name:   "engine",
			Fields: []models.Field{models.FieldEngineShort, models.FieldEngineFull},
			Match:  engineMatcher(wordsPattern(c.EngineMakers, `(?:[ \t]+([A-Za-z0-9]+))?`)),
		},
		{
			Name:   "transmission",
			Fields: []models.Field{models.FieldTransmissionShort, models.FieldTransmissionFull},
			Match:  matchTransmission,
		},
		{
			Name:   "suspension",
			Fields: []models.Field{models.FieldSuspensionShort, models.FieldSuspensionFull},
			Match:  matchSuspension,
		},
		{
			Name:   "towingCapacity",
			Fields: []models.Field{models.FieldTowingCapacity},
			Match:  submatch(towingRe, models.FieldTowingCapacity, 1),
		},
		{
			Name:   "model",
			Fields: []models.Field{models.FieldModel},
			Match:  submatch(wordsPattern(c.Models, ""), models.FieldModel, 1),
		},
		{
			Name:   "brand",
			Fields: []models.Field{models.FieldBrand},
			Match:  submatch(wordsPattern(c.Brands, ""), models.FieldBrand, 1),
		},
	}
}

// wordsPattern builds a case-insensitive whole-word alternation of words,
// followed by suffix.
func wordsPattern(words []string, suffix string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b` + suffix)
}

// submatch emits group of the first match of re as the value of f.
func submatch(re *regexp.Regexp, f models.Field, group int) func(string) []models.FieldCandidate {
	return func(text string) []models.FieldCandidate {
		m := re.FindStringSubmatch(text)
		if m == nil || m[group] == "" {
			return nil
		}
		return []models.FieldCandidate{{Field: f, Value: m[group], Source: m[0]}}
	}
}

func matchPrice(text string) []models.FieldCandidate {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return []models.FieldCandidate{{Field: models.FieldPrice, Value: m[2] + m[3], Source: m[0]}}
}

func coercePrice(c models.FieldCandidate) (any, bool) {
	price, err := strconv.ParseFloat(strings.ReplaceAll(c.Value, ",", ""), 64)
	if err != nil || price <= MinPrice {
		return nil, false
	}
	return price, true
}

func matchVIN(text string) []models.FieldCandidate {
	m := vinRe.FindString(text)
	if m == "" {
		return nil
	}
	return []models.FieldCandidate{{Field: models.FieldVIN, Value: strings.ToUpper(m), Source: m}}
}

func engineMatcher(re *regexp.Regexp) func(string) []models.FieldCandidate {
	return func(text string) []models.FieldCandidate {
		m := re.FindStringSubmatch(text)
		if m == nil || m[1] == "" {
			return nil
		}
		return []models.FieldCandidate{
			{Field: models.FieldEngineShort, Value: m[1], Source: m[0]},
			{Field: models.FieldEngineFull, Value: m[0], Source: m[0]},
		}
	}
}

func matchTransmission(text string) []models.FieldCandidate {
	loc := transRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}
	captured := strings.TrimRight(text[loc[2]:loc[3]], " \t")
	if utf8.RuneCountInString(captured) <= MinCaptureLength {
		return nil
	}
	full := strings.TrimRight(text[loc[0]:loc[3]], " \t")
	return []models.FieldCandidate{
		{Field: models.FieldTransmissionShort, Value: shorten(captured), Source: full},
		{Field: models.FieldTransmissionFull, Value: full, Source: full},
	}
}

func matchSuspension(text string) []models.FieldCandidate {
	loc := suspRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}
	captured := strings.TrimRight(text[loc[2]:loc[3]], " \t")
	if utf8.RuneCountInString(captured) <= MinCaptureLength {
		return nil
	}
	source := text[loc[0]:loc[1]]
	return []models.FieldCandidate{
		{Field: models.FieldSuspensionShort, Value: shorten(captured), Source: source},
		{Field: models.FieldSuspensionFull, Value: captured, Source: source},
	}
}

// shorten keeps the first ShortValueLength runes of s.
func shorten(s string) string {
	if utf8.RuneCountInString(s) <= ShortValueLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:ShortValueLength]), " \t")
}
