// Package filter narrows the catalog to the records a query refers to, using
// an ordered list of progressively looser strategies.
package filter

import (
	"regexp"
	"strconv"
	"strings"

	"transmission-api/internal/catalog"
	"transmission-api/internal/query"
)

// Tier names how strictly the returned candidates matched.
type Tier string

const (
	TierExact   Tier = "EXACT"
	TierRelaxed Tier = "RELAXED"
	TierNone    Tier = "NONE"
)

// Result is the filter outcome. Candidates keep catalog order.
type Result struct {
	Tier       Tier
	Candidates []catalog.Record
}

// Strategy is one tier of the filter.
type Strategy interface {
	Tier() Tier
	// Applies reports whether the strategy should run for q at all.
	Applies(q query.ParsedQuery) bool
	Match(r catalog.Record, q query.ParsedQuery) bool
}

// GroupKey identifies records that should collapse into one candidate.
// A nil GroupKey keeps every record.
type GroupKey func(r catalog.Record) string

// GroupKeyByName returns the grouping function for a config value:
// "none", "trans_model" or "make_model_trans_model".
func GroupKeyByName(name string) GroupKey {
	switch name {
	case "trans_model":
		return func(r catalog.Record) string {
			return strings.ToUpper(strings.TrimSpace(r.TransModel))
		}
	case "make_model_trans_model":
		return func(r catalog.Record) string {
			return strings.ToUpper(r.Name() + "|" + strings.TrimSpace(r.TransModel))
		}
	default:
		return nil
	}
}

// Filter applies strategies in order and returns the first non-empty tier.
type Filter struct {
	strategies    []Strategy
	maxCandidates int
	groupKey      GroupKey
}

// New builds the default EXACT then RELAXED filter. maxCandidates <= 0
// disables the cap.
func New(maxCandidates int, groupKey GroupKey) *Filter {
	return NewWithStrategies([]Strategy{exactStrategy{}, relaxedStrategy{}}, maxCandidates, groupKey)
}

func NewWithStrategies(strategies []Strategy, maxCandidates int, groupKey GroupKey) *Filter {
	return &Filter{strategies: strategies, maxCandidates: maxCandidates, groupKey: groupKey}
}

func (f *Filter) Apply(records []catalog.Record, q query.ParsedQuery) Result {
	for _, s := range f.strategies {
		if !s.Applies(q) {
			continue
		}
		matched := f.collect(records, q, s)
		if len(matched) > 0 {
			return Result{Tier: s.Tier(), Candidates: matched}
		}
	}
	return Result{Tier: TierNone}
}

func (f *Filter) collect(records []catalog.Record, q query.ParsedQuery, s Strategy) []catalog.Record {
	var (
		out  []catalog.Record
		seen map[string]struct{}
	)
	if f.groupKey != nil {
		seen = make(map[string]struct{})
	}
	for _, r := range records {
		if !s.Match(r, q) {
			continue
		}
		if seen != nil {
			key := f.groupKey(r)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, r)
		if f.maxCandidates > 0 && len(out) == f.maxCandidates {
			break
		}
	}
	return out
}

type exactStrategy struct{}

func (exactStrategy) Tier() Tier { return TierExact }
func (exactStrategy) Applies(query.ParsedQuery) bool { return true }

func (exactStrategy) Match(r catalog.Record, q query.ParsedQuery) bool {
	if !MatchesKeywords(r, q.Keywords) {
		return false
	}
	if q.HasYear() && !query.IsYearInRange(r.YearRange, q.Year) {
		return false
	}
	return !q.HasSpeedCount() || MatchesSpeedCount(r.TransType, q.SpeedCount)
}

// relaxedStrategy drops the year predicate. It only runs when the query
// had a year, since otherwise it would repeat the exact tier.
type relaxedStrategy struct{}

func (relaxedStrategy) Tier() Tier { return TierRelaxed }
func (relaxedStrategy) Applies(q query.ParsedQuery) bool { return q.HasYear() }

func (relaxedStrategy) Match(r catalog.Record, q query.ParsedQuery) bool {
	if !MatchesKeywords(r, q.Keywords) {
		return false
	}
	return !q.HasSpeedCount() || MatchesSpeedCount(r.TransType, q.SpeedCount)
}

// SearchText is the lower-cased, hyphen-compressed text keywords are
// matched against.
func SearchText(r catalog.Record) string {
	return query.CompressHyphens(strings.ToLower(strings.Join(
		[]string{r.Make, r.Model, r.TransType, r.EngineSize}, " ",
	)))
}

// MatchesKeywords requires every keyword to be a substring of SearchText.
func MatchesKeywords(r catalog.Record, keywords []string) bool {
	text := SearchText(r)
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

var speedToken = regexp.MustCompile(`(?i)(?:^|[^0-9])(\d{1,2})\s*-?\s*(?:SPEEDS?|SPD|SP|VEL)`)

// MatchesSpeedCount reports whether transType carries a gear-count token
// ("4 SP", "4SP", "6-SPEED") equal to count.
func MatchesSpeedCount(transType string, count int) bool {
	for _, m := range speedToken.FindAllStringSubmatch(transType, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n == count {
			return true
		}
	}
	return false
}
