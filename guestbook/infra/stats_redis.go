package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guestbook-gateway/guestbook/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores de resultados de submissão em hashes Redis:
//
//	<prefix>:total             accepted/rejected/failed (cumulativo, não expira)
//	<prefix>:minute:<yyyymmddhhmm>  idem por minuto (expira em ttl)
//	<prefix>:kind              um campo por kind de rejeição/falha
//	<prefix>:audience:<anonymous|authenticated>
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	ttl    time.Duration
	bucket string // "minute" (padrão) ou "none"
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		if prefix = strings.Trim(prefix, ":"); prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "guestbook:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Status)
	if field == "" {
		return nil
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if ev.Kind != "" {
		pipe.HIncrBy(ctx, s.prefix+":kind", string(ev.Kind), 1)
	}
	pipe.HIncrBy(ctx, s.prefix+":audience:"+audience(ev.Anonymous), field, 1)

	_, err := pipe.Exec(ctx)
	return err
}
