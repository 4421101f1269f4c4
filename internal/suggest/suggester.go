package suggest

import (
	"context"
	"strconv"
	"strings"

	"transmission-api/internal/catalog"
	"transmission-api/internal/common/logger"
	"transmission-api/internal/query"
)

// Kind classifies a suggestion.
type Kind string

const (
	KindNotFound Kind = "NOT_FOUND"
	// KindCorrected carries a name, plus the year when a record covers it.
	KindCorrected Kind = "CORRECTED"
	// KindYearUnavailable means the name exists but no record covers the
	// requested year.
	KindYearUnavailable Kind = "YEAR_UNAVAILABLE"
)

type Suggestion struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name,omitempty"`
	Year int    `json:"year,omitempty"`
}

// Text is the suggested query, e.g. "Honda Accord 2000".
func (s Suggestion) Text() string {
	if s.Kind != KindCorrected {
		return s.Name
	}
	if s.Year != 0 {
		return s.Name + " " + strconv.Itoa(s.Year)
	}
	return s.Name
}

type Suggester struct {
	corrector SpellCorrector
	logger    logger.Logger
}

func NewSuggester(corrector SpellCorrector, log logger.Logger) *Suggester {
	return &Suggester{corrector: corrector, logger: logger.ForComponent(log, "suggest")}
}

// Suggest never fails: corrector errors are logged and reported as
// KindNotFound.
func (s *Suggester) Suggest(ctx context.Context, q query.ParsedQuery, records []catalog.Record) Suggestion {
	known := KnownNames(records)
	if len(known) == 0 {
		return Suggestion{Kind: KindNotFound}
	}

	text := strings.Join(q.Keywords, " ")
	if text == "" {
		text = q.Raw
	}

	match, ok, err := s.corrector.Correct(ctx, text, known)
	if err != nil {
		s.logger.Warn("spell correction failed", map[string]interface{}{
			"error": err.Error(),
			"query": q.Raw,
		})
		return Suggestion{Kind: KindNotFound}
	}
	if !ok {
		return Suggestion{Kind: KindNotFound}
	}

	if !q.HasYear() {
		return Suggestion{Kind: KindCorrected, Name: match}
	}
	for _, r := range records {
		if strings.EqualFold(r.Name(), match) && query.IsYearInRange(r.YearRange, q.Year) {
			return Suggestion{Kind: KindCorrected, Name: match, Year: q.Year}
		}
	}
	return Suggestion{Kind: KindYearUnavailable, Name: match, Year: q.Year}
}
