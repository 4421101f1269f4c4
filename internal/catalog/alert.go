package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"transmission-api/internal/common/logger"
)

// Alerter is told when the catalog cannot be served at all.
type Alerter interface {
	CatalogUnavailable(ctx context.Context, source string, cause error)
}

// NoopAlerter drops every alert.
type NoopAlerter struct{}

func (NoopAlerter) CatalogUnavailable(context.Context, string, error) {}

// Notifier is satisfied by aws.SNSClient.
type Notifier interface {
	Notify(ctx context.Context, subject, message, source string) (string, error)
}

// SNSAlerter publishes outage alerts, at most one per interval.
type SNSAlerter struct {
	notifier Notifier
	limiter  *rate.Limiter
	logger   logger.Logger
}

func NewSNSAlerter(n Notifier, minInterval time.Duration, log logger.Logger) *SNSAlerter {
	return &SNSAlerter{
		notifier: n,
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
		logger:   logger.ForComponent(log, "catalog-alert"),
	}
}

func (a *SNSAlerter) CatalogUnavailable(ctx context.Context, source string, cause error) {
	if !a.limiter.Allow() {
		a.logger.Debug("catalog alert suppressed", map[string]interface{}{"source": source})
		return
	}

	msg := fmt.Sprintf("Transmission catalog (%s) could not be loaded and no snapshot is available: %v", source, cause)
	id, err := a.notifier.Notify(ctx, "transmission-api: catalog unavailable", msg, "catalog")
	if err != nil {
		a.logger.Error("failed to publish catalog alert", map[string]interface{}{"error": err.Error()})
		return
	}
	a.logger.Info("catalog alert published", map[string]interface{}{"messageId": id})
}
