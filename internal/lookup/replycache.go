package lookup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"transmission-api/internal/catalog"
	"transmission-api/internal/common/logger"
	"transmission-api/internal/common/metrics"
	"transmission-api/internal/filter"
	"transmission-api/internal/query"
)

// CachedReply is a composed, non-degraded reply.
type CachedReply struct {
	Reply          string      `json:"reply"`
	Tier           filter.Tier `json:"tier"`
	CandidateCount int         `json:"candidateCount"`
}

// ReplyCache stores composed replies by query signature. Implementations
// swallow their own errors: a cache failure is a miss.
type ReplyCache interface {
	Get(ctx context.Context, key string) (*CachedReply, bool)
	Set(ctx context.Context, key string, reply *CachedReply)
}

const replyKeyPrefix = "transmission:reply:"

// ReplyKey derives the cache key from the query, the tier and the candidate
// rows the reply was composed from. A catalog refresh that changes the
// candidates changes the key.
func ReplyKey(q query.ParsedQuery, tier filter.Tier, candidates []catalog.Record) string {
	h := sha256.New()
	h.Write([]byte(q.Signature()))
	h.Write([]byte{0x1e})
	h.Write([]byte(tier))
	for _, r := range candidates {
		h.Write([]byte{0x1e})
		h.Write([]byte(strings.Join([]string{r.Make, r.Model, r.YearRange, r.TransType, r.EngineSize, r.TransModel}, "\x1f")))
	}
	return replyKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

type RedisReplyCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisReplyCache(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisReplyCache {
	return &RedisReplyCache{client: client, ttl: ttl, logger: logger.ForComponent(log, "reply-cache")}
}

func (c *RedisReplyCache) Get(ctx context.Context, key string) (*CachedReply, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ReplyCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.ReplyCache.WithLabelValues("error").Inc()
		c.logger.Warn("reply cache read failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}

	var reply CachedReply
	if err := json.Unmarshal(val, &reply); err != nil || reply.Reply == "" {
		metrics.ReplyCache.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.ReplyCache.WithLabelValues("hit").Inc()
	return &reply, true
}

func (c *RedisReplyCache) Set(ctx context.Context, key string, reply *CachedReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		metrics.ReplyCache.WithLabelValues("error").Inc()
		c.logger.Warn("reply cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
