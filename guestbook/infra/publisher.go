package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"guestbook-gateway/guestbook/domain"

	"github.com/redis/go-redis/v9"
)

const DefaultEntriesChannel = "guestbook:entries"

// RedisPublisher publica entradas recém inseridas em um canal Redis pub/sub.
// O payload é a entrada pública (sem endereço de origem) em JSON.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

type RedisPublisherOption func(*RedisPublisher)

func WithPublishChannel(channel string) RedisPublisherOption {
	return func(p *RedisPublisher) {
		if channel = strings.TrimSpace(channel); channel != "" {
			p.channel = channel
		}
	}
}

func NewRedisPublisher(rdb *redis.Client, opts ...RedisPublisherOption) *RedisPublisher {
	p := &RedisPublisher{rdb: rdb, channel: DefaultEntriesChannel}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RedisPublisher) Channel() string { return p.channel }

func (p *RedisPublisher) Publish(ctx context.Context, e domain.Entry) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(e.Public())
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}

// PublishingStore envolve um domain.EntryStore e publica cada insert bem
// sucedido. Falha de publicação só gera log: a entrada já está salva.
type PublishingStore struct {
	domain.EntryStore
	publisher domain.EntryPublisher
	logger    *slog.Logger
}

func NewPublishingStore(store domain.EntryStore, publisher domain.EntryPublisher, logger *slog.Logger) *PublishingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishingStore{EntryStore: store, publisher: publisher, logger: logger}
}

func (s *PublishingStore) Insert(ctx context.Context, e domain.NewEntry) (domain.Entry, error) {
	entry, err := s.EntryStore.Insert(ctx, e)
	if err != nil {
		return entry, err
	}
	if s.publisher != nil {
		// o chamador pode ter desistido, mas a entrada já existe
		if err := s.publisher.Publish(context.WithoutCancel(ctx), entry); err != nil {
			s.logger.WarnContext(ctx, "entry publish failed", "id", entry.ID, "error", err)
		}
	}
	return entry, nil
}
