package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"transmission-api/internal/catalog"
	"transmission-api/internal/common/aws"
	"transmission-api/internal/common/config"
	"transmission-api/internal/common/database"
	commonhttp "transmission-api/internal/common/http"
	"transmission-api/internal/common/logger"
	"transmission-api/internal/common/observability"
	"transmission-api/internal/composer"
	"transmission-api/internal/filter"
	"transmission-api/internal/llm"
	"transmission-api/internal/lookup"
	"transmission-api/internal/query"
	"transmission-api/internal/suggest"
)

// app is the wired lookup pipeline shared by every command.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	catalog *catalog.Cache
	file    *catalog.FileProvider
	llm     *llm.Client
	obs     *observability.Observability
	service *lookup.Service
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.NewZapAdapter(logger.New(cfg.Logging.Level, cfg.Logging.Format)).
		With(map[string]interface{}{"service": cfg.App.Name})
}

// buildApp connects the configured backends. Required backends (the catalog
// database, the completion client) fail startup; optional ones (Redis, SNS,
// metrics export) only log.
func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger, withObservability bool) (*app, error) {
	a := &app{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	provider, err := a.catalogProvider(ctx)
	if err != nil {
		return nil, err
	}

	rdb := a.redis(ctx)

	opts := catalog.Options{
		TTL:          config.GetDuration(cfg.Catalog.RefreshInterval),
		FetchTimeout: config.GetDuration(cfg.Catalog.FetchTimeout),
		Alerter:      a.alerter(ctx),
	}
	if rdb != nil && cfg.Catalog.Snapshot.Enabled {
		opts.Snapshot = catalog.NewRedisSnapshotStore(rdb, cfg.Catalog.Snapshot.Key, config.GetDuration(cfg.Catalog.Snapshot.TTL))
	}
	a.catalog = catalog.NewCache(provider, opts, log)

	a.llm, err = llm.New(ctx, cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("completion client: %w", err)
	}

	implicitSpeed := true
	if cfg.Query.ImplicitSpeedCount != nil {
		implicitSpeed = *cfg.Query.ImplicitSpeedCount
	}
	normalizer := query.NewNormalizer(query.Options{
		MinTokenLength:     cfg.Query.MinTokenLength,
		ImplicitSpeedCount: implicitSpeed,
		ExtraStopWords:     cfg.Query.ExtraStopWords,
	})

	comp := composer.New(a.llm, composer.Config{
		Temperature:      cfg.LLM.Temperature,
		MaxOutputTokens:  cfg.LLM.MaxOutputTokens,
		PlaceholderCodes: cfg.Catalog.Placeholders.Codes,
		PlaceholderLabel: cfg.Catalog.Placeholders.Label,
	}, log)

	var corrector suggest.SpellCorrector
	switch cfg.Suggest.Corrector {
	case config.CorrectorLevenshtein:
		corrector = suggest.NewLevenshteinCorrector(cfg.Suggest.MaxDistance)
	default:
		corrector = suggest.NewLLMCorrector(a.llm)
	}

	var svcOpts []lookup.Option
	if rdb != nil && cfg.ReplyCache.Enabled {
		svcOpts = append(svcOpts, lookup.WithReplyCache(lookup.NewRedisReplyCache(rdb, config.GetDuration(cfg.ReplyCache.TTL), log)))
	}
	if withObservability {
		obs, err := observability.New(cfg.App.Name)
		if err != nil {
			log.Warn("otel metrics disabled", map[string]interface{}{"error": err.Error()})
		} else {
			a.obs = obs
			svcOpts = append(svcOpts, lookup.WithRecorder(obs))
			a.closers = append(a.closers, func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return obs.Shutdown(shutdownCtx)
			})
		}
	}

	a.service = lookup.NewService(
		a.catalog,
		normalizer,
		filter.New(cfg.Catalog.MaxCandidates, filter.GroupKeyByName(cfg.Catalog.GroupBy)),
		comp,
		suggest.NewSuggester(corrector, log),
		log,
		svcOpts...,
	)

	ok = true
	return a, nil
}

func (a *app) catalogProvider(ctx context.Context) (catalog.Provider, error) {
	cfg := a.cfg
	switch cfg.Catalog.Source {
	case config.CatalogSourceFile:
		a.file = catalog.NewFileProvider(cfg.Catalog.Path)
		return a.file, nil

	case config.CatalogSourcePostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(ctx, func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				_ = pg.Close()
				return err
			}
			return nil
		}, 5, 2*time.Second, a.log, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		a.log.Info("PostgreSQL connected", nil)
		return catalog.NewPostgresProvider(pg.GetDB(), cfg.Catalog.Table), nil

	case config.CatalogSourceElasticsearch:
		var es *database.ElasticsearchClient
		err := retryWithBackoff(ctx, func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 5, 2*time.Second, a.log, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		a.log.Info("Elasticsearch connected", nil)
		return catalog.NewElasticsearchProvider(es.Client, cfg.Catalog.Index, 0), nil

	default:
		return catalog.NewHTTPProvider(cfg.Catalog.URL, commonhttp.NewClient(config.GetDuration(cfg.Catalog.FetchTimeout))), nil
	}
}

// redis returns nil when Redis is not configured or not reachable; the
// snapshot and reply cache are then skipped.
func (a *app) redis(ctx context.Context) redis.Cmdable {
	cfg := a.cfg
	if cfg.Database.Redis.Address == "" || (!cfg.Catalog.Snapshot.Enabled && !cfg.ReplyCache.Enabled) {
		return nil
	}
	rc, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		a.log.Warn("redis disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		a.log.Warn("redis unreachable, snapshot and reply cache disabled", map[string]interface{}{"error": err.Error()})
		_ = rc.Close()
		return nil
	}
	a.closers = append(a.closers, rc.Close)
	a.log.Info("Redis connected", map[string]interface{}{"address": cfg.Database.Redis.Address})
	return rc.GetClient()
}

func (a *app) alerter(ctx context.Context) catalog.Alerter {
	sns := a.cfg.Alerts.SNS
	if !sns.Enabled {
		return catalog.NoopAlerter{}
	}
	client, err := aws.NewSNSClient(ctx, sns.Region, sns.TopicARN)
	if err != nil {
		a.log.Warn("sns alerts disabled", map[string]interface{}{"error": err.Error()})
		return catalog.NoopAlerter{}
	}
	return catalog.NewSNSAlerter(client, config.GetDuration(sns.MinInterval), a.log)
}

// retryWithBackoff runs operation up to maxRetries times, doubling the delay
// after each failure.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
