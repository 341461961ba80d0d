// Package redis persists session mirrors in Redis and provides a Redis-backed
// distributed lock.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "graff:session:"

// neverExpires is the index score of snapshots saved without a TTL.
var neverExpires = float64(time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())

// Store implements ports.SnapshotStore on Redis.
//
// Each snapshot is a JSON string under prefix+name. A sorted set at
// prefix+"index" lists the names, scored by expiry time in Unix nanoseconds,
// so List can drop expired entries lazily.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires snapshots after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to addr.
func New(addr, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client { return s.client }

func (s *Store) key(name string) string { return s.prefix + name }

func (s *Store) indexKey() string { return s.prefix + "index" }

// Save writes the snapshot and indexes it.
func (s *Store) Save(ctx context.Context, name string, session *domain.Session) error {
	raw, err := codec.MarshalSnapshot(session)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", name, err)
	}

	score := neverExpires
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).UnixNano())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(name), raw, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: name})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save %q: %w", name, err)
	}
	return nil
}

// Load reads a snapshot.
func (s *Store) Load(ctx context.Context, name string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load %q: %w", name, err)
	}
	return codec.UnmarshalSnapshot(raw)
}

// Delete removes a snapshot and its index entry.
func (s *Store) Delete(ctx context.Context, name string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(name))
	pipe.ZRem(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete %q: %w", name, err)
	}
	return nil
}

// List returns live session names after pruning expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("redis prune index: %w", err)
	}
	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	return names, nil
}
