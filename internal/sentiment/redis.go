package sentiment

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"BhavSentinel/internal/model"
)

// DefaultKeyPrefix is prepended to the upper-case symbol to form the hash key.
const DefaultKeyPrefix = "sentiment"

// Hash fields read from each sentiment key.
const (
	FieldSocial  = "social"
	FieldNews    = "news"
	FieldAnalyst = "analyst"
)

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisProvider reads hashes like sentiment:TCS {social, news, analyst}.
type RedisProvider struct {
	client redis.Cmdable
	prefix string
	log    zerolog.Logger
}

func NewRedisProvider(client redis.Cmdable, prefix string, log zerolog.Logger) *RedisProvider {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisProvider{
		client: client,
		prefix: prefix,
		log:    log.With().Str("component", "sentiment").Logger(),
	}
}

func (p *RedisProvider) key(symbol string) string {
	return p.prefix + ":" + strings.ToUpper(symbol)
}

// Lookup returns nil when the hash does not exist. Fields that are missing,
// unparseable or outside [0,1] are left nil and count as neutral.
func (p *RedisProvider) Lookup(ctx context.Context, symbol string) (*model.Sentiment, error) {
	key := p.key(symbol)
	fields, err := p.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &model.Sentiment{
		Social:  p.score(key, FieldSocial, fields),
		News:    p.score(key, FieldNews, fields),
		Analyst: p.score(key, FieldAnalyst, fields),
	}, nil
}

func (p *RedisProvider) score(key, field string, fields map[string]string) *float64 {
	raw, ok := fields[field]
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 1 {
		p.log.Warn().Str("key", key).Str("field", field).Str("value", raw).Msg("ignoring invalid sentiment score")
		return nil
	}
	return &v
}
