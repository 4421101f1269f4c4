// Package query turns free-text vehicle queries into structured filters and
// evaluates catalog year-range notation.
package query

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidQuery = errors.New("INVALID_QUERY")

// ParsedQuery is the structured form of a user query. Year and SpeedCount
// are zero when the query did not state them.
type ParsedQuery struct {
	Raw        string   `json:"raw"`
	Year       int      `json:"year,omitempty"`
	SpeedCount int      `json:"speedCount,omitempty"`
	Keywords   []string `json:"keywords"`
}

// HasYear reports whether an explicit model year was found.
func (p ParsedQuery) HasYear() bool { return p.Year != 0 }

// HasSpeedCount reports whether an explicit gear count was found.
func (p ParsedQuery) HasSpeedCount() bool { return p.SpeedCount != 0 }

// Signature is a stable identity for equivalent queries.
func (p ParsedQuery) Signature() string {
	kw := append([]string(nil), p.Keywords...)
	sort.Strings(kw)
	return strconv.Itoa(p.Year) + "|" + strconv.Itoa(p.SpeedCount) + "|" + strings.Join(kw, " ")
}

// speedSynonyms are the words that mark an adjacent number as a gear count.
var speedSynonyms = []string{
	"cambios", "cambio", "velocidades", "velocidad", "vel", "marchas",
	"speeds", "speed", "spd", "sp",
}

var (
	speedSpaced   = regexp.MustCompile(`(?i)(?:^|\s)(\d{1,2})[\s-]*(` + strings.Join(speedSynonyms, "|") + `)(?:\s|[.,;:!?]|$)`)
	fourDigitYear = regexp.MustCompile(`^(?:19|20)\d{2}$`)
	twoDigits     = regexp.MustCompile(`^\d{2}$`)
	implicitSpeed = regexp.MustCompile(`^[3-9]$`)
)

// defaultStopWords are compared after Fold, so accents are optional.
var defaultStopWords = []string{
	"transmisión", "transmisiones", "transmission", "trans",
	"caja", "de", "del", "la", "el", "los", "las", "para", "un", "una", "con",
	"qué", "cuál", "cuáles", "tiene", "lleva", "usa", "mi", "es", "y",
	"automática", "automático", "auto",
	"modelo", "año", "motor", "versión",
	"the", "for", "with", "what", "which", "does", "is", "my",
	"automatic", "gearbox", "model", "year",
}

// Options tunes the normalizer.
type Options struct {
	// MinTokenLength drops shorter keyword tokens. Defaults to 2.
	MinTokenLength int
	// ImplicitSpeedCount treats a lone digit in [3,9] as a gear count when no
	// explicit "N cambios" form is present.
	ImplicitSpeedCount bool
	ExtraStopWords     []string
}

// DefaultOptions returns the production normalizer settings.
func DefaultOptions() Options {
	return Options{MinTokenLength: 2, ImplicitSpeedCount: true}
}

// Normalizer is stateless after construction and safe for concurrent use.
type Normalizer struct {
	minTokenLength int
	implicitSpeed  bool
	stopWords      map[string]struct{}
}

func NewNormalizer(opts Options) *Normalizer {
	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = 2
	}
	stop := make(map[string]struct{}, len(defaultStopWords)+len(opts.ExtraStopWords))
	for _, w := range defaultStopWords {
		stop[Fold(w)] = struct{}{}
	}
	for _, w := range opts.ExtraStopWords {
		stop[Fold(w)] = struct{}{}
	}
	return &Normalizer{
		minTokenLength: opts.MinTokenLength,
		implicitSpeed:  opts.ImplicitSpeedCount,
		stopWords:      stop,
	}
}

// Normalize extracts speed count, then year, then keyword tokens.
func (n *Normalizer) Normalize(raw string) (ParsedQuery, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ParsedQuery{}, ErrInvalidQuery
	}

	parsed := ParsedQuery{Raw: trimmed}

	text, speed := extractExplicitSpeed(trimmed)
	fields := trimFields(strings.Fields(text))
	if speed == 0 && n.implicitSpeed {
		fields, speed = extractImplicitSpeed(fields)
	}
	parsed.SpeedCount = speed

	fields = expandTwoDigitYears(fields)
	fields, parsed.Year = extractYear(fields)
	parsed.Keywords = n.tokenize(fields)

	return parsed, nil
}

func extractExplicitSpeed(text string) (string, int) {
	loc := speedSpaced.FindStringSubmatchIndex(text)
	if loc == nil {
		for _, tok := range strings.Fields(text) {
			if count, ok := glued(tok); ok {
				return strings.Replace(text, tok, " ", 1), count
			}
		}
		return text, 0
	}
	count, err := strconv.Atoi(text[loc[2]:loc[3]])
	if err != nil || count == 0 {
		return text, 0
	}
	return text[:loc[2]] + " " + text[loc[5]:], count
}

// glued matches single-token forms like "6sp" or "6cambios".
func glued(tok string) (int, bool) {
	lower := strings.ToLower(strings.Trim(tok, ".,;:!?"))
	i := 0
	for i < len(lower) && i < 2 && lower[i] >= '0' && lower[i] <= '9' {
		i++
	}
	if i == 0 || i == len(lower) {
		return 0, false
	}
	suffix := lower[i:]
	for _, syn := range speedSynonyms {
		if suffix == syn {
			count, err := strconv.Atoi(lower[:i])
			return count, err == nil && count > 0
		}
	}
	return 0, false
}

const punctuation = `.,;:!?¿¡()"'`

// trimFields strips surrounding punctuation so "2000?" and "(Accord" compare
// as plain words. Fields that were only punctuation are dropped.
func trimFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.Trim(f, punctuation); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func extractImplicitSpeed(fields []string) ([]string, int) {
	for i, f := range fields {
		if implicitSpeed.MatchString(f) {
			count, _ := strconv.Atoi(f)
			return removeAt(fields, i), count
		}
	}
	return fields, 0
}

// expandTwoDigitYears rewrites "98" as "1998" and "05" as "2005". Values in
// 31-79 are left alone.
func expandTwoDigitYears(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f
		if !twoDigits.MatchString(f) {
			continue
		}
		v, _ := strconv.Atoi(f)
		switch {
		case v >= 80:
			out[i] = strconv.Itoa(1900 + v)
		case v <= 30:
			out[i] = strconv.Itoa(2000 + v)
		}
	}
	return out
}

func extractYear(fields []string) ([]string, int) {
	for i, f := range fields {
		if fourDigitYear.MatchString(f) {
			year, _ := strconv.Atoi(f)
			return removeAt(fields, i), year
		}
	}
	return fields, 0
}

func (n *Normalizer) tokenize(fields []string) []string {
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := CompressHyphens(strings.ToLower(f))
		if len([]rune(tok)) < n.minTokenLength {
			continue
		}
		if _, stop := n.stopWords[Fold(tok)]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// CompressHyphens removes hyphens so "CX-9" and "CX9" compare equal.
func CompressHyphens(s string) string {
	return strings.ReplaceAll(s, "-", "")
}

func removeAt(fields []string, i int) []string {
	out := make([]string, 0, len(fields)-1)
	out = append(out, fields[:i]...)
	return append(out, fields[i+1:]...)
}
