package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"donationBoard/internal/model"
)

// RedisStore keeps one hash of event JSON keyed by id, a sorted set giving the
// creation order and a pub/sub channel announcing every write.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *zerolog.Logger
}

func NewRedisStore(client *redis.Client, prefix string, log *zerolog.Logger) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "eventos"
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix, log: log}, nil
}

func (s *RedisStore) hashKey() string    { return s.prefix }
func (s *RedisStore) orderKey() string   { return s.prefix + ":order" }
func (s *RedisStore) counterKey() string { return s.prefix + ":seq" }
func (s *RedisStore) channel() string    { return s.prefix + ":changed" }

func (s *RedisStore) Load(ctx context.Context) ([]model.Event, error) {
	raw, err := s.client.HGetAll(ctx, s.hashKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	if len(raw) == 0 {
		return []model.Event{}, nil
	}

	order, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event order: %w", err)
	}

	ids := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, id := range order {
		if _, ok := raw[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	var orphans []string
	for id := range raw {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	ids = append(ids, orphans...)

	events := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		var e model.Event
		if err := json.Unmarshal([]byte(raw[id]), &e); err != nil {
			return []model.Event{}, fmt.Errorf("%w: event %s: %v", ErrCorruptData, id, err)
		}
		e.ID = id
		events = append(events, e)
	}
	return Normalize(events), nil
}

func (s *RedisStore) Persist(ctx context.Context, events []model.Event) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.hashKey(), s.orderKey())
		for i, e := range events {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to encode event %s: %w", e.ID, err)
			}
			pipe.HSet(ctx, s.hashKey(), e.ID, data)
			pipe.ZAdd(ctx, s.orderKey(), redis.Z{Score: float64(i + 1), Member: e.ID})
		}
		pipe.Set(ctx, s.counterKey(), len(events), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace events: %w", err)
	}
	s.publish(ctx, NewChange(OpReplace, ""))
	return nil
}

func (s *RedisStore) Create(ctx context.Context, e model.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	seq, err := s.client.Incr(ctx, s.counterKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate event position: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey(), e.ID, data)
		pipe.ZAdd(ctx, s.orderKey(), redis.Z{Score: float64(seq), Member: e.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	s.publish(ctx, NewChange(OpCreate, e.ID))
	return nil
}

func (s *RedisStore) Update(ctx context.Context, e model.Event) error {
	exists, err := s.client.HExists(ctx, s.hashKey(), e.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return ErrEventNotFound
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := s.client.HSet(ctx, s.hashKey(), e.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	s.publish(ctx, NewChange(OpUpdate, e.ID))
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.HDel(ctx, s.hashKey(), id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	if err := s.client.ZRem(ctx, s.orderKey(), id).Err(); err != nil {
		s.log.Warn().Err(err).Str("event_id", id).Msg("failed to drop event from order set")
	}
	s.publish(ctx, NewChange(OpDelete, id))
	return nil
}

func (s *RedisStore) publish(ctx context.Context, c Change) {
	if err := s.client.Publish(ctx, s.channel(), c.Marshal()).Err(); err != nil {
		s.log.Error().Err(err).Str("op", c.Op).Msg("failed to publish change")
	}
}

// Watch blocks until ctx is done, calling onChange for every published change.
func (s *RedisStore) Watch(ctx context.Context, onChange func()) error {
	pubsub := s.client.Subscribe(ctx, s.channel())
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel(), err)
	}
	s.log.Info().Str("channel", s.channel()).Msg("watching redis for event changes")

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				s.log.Warn().Err(err).Msg("malformed change message, reloading anyway")
			}
			onChange()
		}
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
