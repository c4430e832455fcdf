// Package kv holds short-lived server state in Redis, or in process memory
// when no Redis is configured.
package kv

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/repository"
)

// RedisResetTokens stores reset tokens as "<prefix>:<hex hash>" = user id with a TTL.
type RedisResetTokens struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ repository.ResetTokenStore = (*RedisResetTokens)(nil)

func NewRedisResetTokens(rdb redis.UniversalClient, prefix string) *RedisResetTokens {
	if prefix == "" {
		prefix = "pwreset"
	}
	return &RedisResetTokens{rdb: rdb, prefix: prefix}
}

func (s *RedisResetTokens) key(hash []byte) string {
	return s.prefix + ":" + hex.EncodeToString(hash)
}

func (s *RedisResetTokens) Put(ctx context.Context, hash []byte, userID uuid.UUID, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(hash), userID.String(), ttl).Err()
}

// Take uses GETDEL so a token can be redeemed once.
func (s *RedisResetTokens) Take(ctx context.Context, hash []byte) (uuid.UUID, error) {
	v, err := s.rdb.GetDel(ctx, s.key(hash)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, errs.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.FromString(v)
}

type resetEntry struct {
	user    uuid.UUID
	expires time.Time
}

// MemoryResetTokens is the single-process fallback.
type MemoryResetTokens struct {
	mu  sync.Mutex
	m   map[string]resetEntry
	now func() time.Time
}

var _ repository.ResetTokenStore = (*MemoryResetTokens)(nil)

func NewMemoryResetTokens() *MemoryResetTokens {
	return &MemoryResetTokens{m: make(map[string]resetEntry), now: time.Now}
}

// Put also drops expired entries.
func (s *MemoryResetTokens) Put(_ context.Context, hash []byte, userID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.m {
		if !now.Before(e.expires) {
			delete(s.m, k)
		}
	}
	s.m[string(hash)] = resetEntry{user: userID, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryResetTokens) Take(_ context.Context, hash []byte) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[string(hash)]
	delete(s.m, string(hash))
	if !ok || !s.now().Before(e.expires) {
		return uuid.Nil, errs.ErrNotFound
	}
	return e.user, nil
}
