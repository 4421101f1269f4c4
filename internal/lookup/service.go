// Package lookup coordinates a single transmission lookup: normalize, filter,
// then compose a reply or suggest an alternative name.
package lookup

import (
	"context"
	"errors"
	"time"

	"transmission-api/internal/catalog"
	"transmission-api/internal/common/logger"
	"transmission-api/internal/common/metrics"
	"transmission-api/internal/filter"
	"transmission-api/internal/llm"
	"transmission-api/internal/query"
	"transmission-api/internal/suggest"
)

// ErrNoCandidates marks a lookup that matched nothing. It is an outcome
// reported in Result.Cause, not a returned error.
var ErrNoCandidates = errors.New("NO_CANDIDATES")

type Catalog interface {
	Get(ctx context.Context) ([]catalog.Record, error)
}

type Composer interface {
	Compose(ctx context.Context, candidates []catalog.Record, q query.ParsedQuery, tier filter.Tier) (string, error)
}

type Suggester interface {
	Suggest(ctx context.Context, q query.ParsedQuery, records []catalog.Record) suggest.Suggestion
}

// Recorder receives one observation per lookup.
type Recorder interface {
	RecordLookup(ctx context.Context, outcome string, duration time.Duration)
}

// Result is what the transports render. Reply is always safe to show.
type Result struct {
	Reply          string           `json:"reply"`
	Suggestion     string           `json:"suggestion,omitempty"`
	Tier           filter.Tier      `json:"tier"`
	CandidateCount int              `json:"candidateCount"`
	Candidates     []catalog.Record `json:"-"`
	Cached         bool             `json:"cached,omitempty"`
	Degraded       bool             `json:"degraded,omitempty"`
	// Cause is why the reply is not a composed answer. Never shown to users.
	Cause error `json:"-"`
}

type Service struct {
	catalog    Catalog
	normalizer *query.Normalizer
	filter     *filter.Filter
	composer   Composer
	suggester  Suggester
	cache      ReplyCache
	recorder   Recorder
	logger     logger.Logger
}

// Option customizes a Service.
type Option func(*Service)

func WithReplyCache(c ReplyCache) Option { return func(s *Service) { s.cache = c } }

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func NewService(
	cat Catalog,
	normalizer *query.Normalizer,
	f *filter.Filter,
	comp Composer,
	sugg Suggester,
	log logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		catalog:    cat,
		normalizer: normalizer,
		filter:     f,
		composer:   comp,
		suggester:  sugg,
		logger:     logger.ForComponent(log, "lookup"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup answers raw. The returned error is non-nil only for
// query.ErrInvalidQuery and catalog.ErrCatalogUnavailable; the Result is
// populated with a user-safe reply in every case.
func (s *Service) Lookup(ctx context.Context, raw string) (*Result, error) {
	started := time.Now()

	parsed, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.observe(ctx, "invalid", started)
		return &Result{Reply: MsgEmptyQuery, Tier: filter.TierNone, Cause: err}, err
	}

	records, err := s.catalog.Get(ctx)
	if err != nil {
		s.logger.Error("catalog unavailable", map[string]interface{}{"error": err.Error()})
		s.observe(ctx, "unavailable", started)
		return &Result{Reply: MsgCatalogUnavailable, Tier: filter.TierNone, Cause: err}, err
	}

	matched := s.filter.Apply(records, parsed)
	log := s.logger.With(map[string]interface{}{
		"query":      parsed.Raw,
		"tier":       string(matched.Tier),
		"candidates": len(matched.Candidates),
	})

	var res *Result
	if matched.Tier == filter.TierNone {
		res = s.suggest(ctx, parsed, records)
	} else {
		res = s.compose(ctx, parsed, matched, log)
	}

	log.Info("lookup completed", map[string]interface{}{
		"cached":   res.Cached,
		"degraded": res.Degraded,
		"duration": time.Since(started).String(),
	})
	outcome := string(res.Tier)
	if res.Degraded {
		outcome = "degraded"
	}
	s.observe(ctx, outcome, started)
	return res, nil
}

func (s *Service) suggest(ctx context.Context, q query.ParsedQuery, records []catalog.Record) *Result {
	res := &Result{Reply: MsgNotFound, Tier: filter.TierNone, Cause: ErrNoCandidates}

	sugg := s.suggester.Suggest(ctx, q, records)
	switch sugg.Kind {
	case suggest.KindCorrected:
		res.Reply = didYouMean(q.Raw, sugg)
		res.Suggestion = sugg.Text()
	case suggest.KindYearUnavailable:
		res.Reply = yearUnavailable(sugg)
		res.Suggestion = sugg.Text()
	}
	return res
}

func (s *Service) compose(ctx context.Context, q query.ParsedQuery, matched filter.Result, log logger.Logger) *Result {
	res := &Result{
		Tier:           matched.Tier,
		CandidateCount: len(matched.Candidates),
		Candidates:     matched.Candidates,
	}

	key := ReplyKey(q, matched.Tier, matched.Candidates)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			res.Reply = cached.Reply
			res.Cached = true
			return res
		}
	}

	reply, err := s.composer.Compose(ctx, matched.Candidates, q, matched.Tier)
	if err != nil {
		res.Degraded = true
		res.Cause = err
		res.Reply = degradedReply(err, matched.Candidates)
		metrics.UpstreamFailures.WithLabelValues(failureKind(err)).Inc()
		log.Warn("completion failed, replying degraded", map[string]interface{}{
			"error": err.Error(),
			"kind":  failureKind(err),
		})
		return res
	}

	res.Reply = reply
	if s.cache != nil {
		s.cache.Set(ctx, key, &CachedReply{Reply: reply, Tier: matched.Tier, CandidateCount: len(matched.Candidates)})
	}
	return res
}

func (s *Service) observe(ctx context.Context, outcome string, started time.Time) {
	d := time.Since(started)
	metrics.LookupsTotal.WithLabelValues(outcome).Inc()
	metrics.LookupDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if s.recorder != nil {
		s.recorder.RecordLookup(ctx, outcome, d)
	}
}

func degradedReply(err error, candidates []catalog.Record) string {
	if errors.Is(err, llm.ErrUpstreamRateLimited) {
		return MsgRateLimited
	}
	return candidateFallback(candidates)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, llm.ErrUpstreamRateLimited):
		return "rate_limited"
	case errors.Is(err, llm.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, llm.ErrMalformedReply):
		return "malformed"
	default:
		return "service"
	}
}
