package credstore

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/logger"
)

// RedisStore keeps the session as three string keys under "<namespace>:".
// It lets several processes on one machine or cluster share a session.
type RedisStore struct {
	rdb redis.UniversalClient
	ns  string
	log *zap.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore uses rdb with the given key namespace (DefaultNamespace if empty).
func NewRedisStore(rdb redis.UniversalClient, namespace string, log *zap.Logger) *RedisStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisStore{rdb: rdb, ns: namespace, log: logger.OrNop(log)}
}

func (s *RedisStore) key(k string) string { return s.ns + ":" + k }

func (s *RedisStore) keys() []string {
	out := make([]string, 0, len(sessionKeys))
	for _, k := range sessionKeys {
		out = append(out, s.key(k))
	}
	return out
}

// Read fetches the three keys with one MGET.
func (s *RedisStore) Read(ctx context.Context) Snapshot {
	vals, err := s.rdb.MGet(ctx, s.keys()...).Result()
	if err != nil {
		s.log.Warn("credstore: redis read failed, treating as empty", zap.Error(err))
		return Snapshot{}
	}
	m := make(map[string]string, len(sessionKeys))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			m[sessionKeys[i]] = str
		}
	}
	return fromFields(m, s.log)
}

// Write replaces the three keys inside MULTI/EXEC.
func (s *RedisStore) Write(ctx context.Context, snap Snapshot) error {
	m, err := toFields(snap)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.keys()...)
		for k, v := range m {
			p.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	return err
}

// Clear scans the namespace and deletes the session keys plus everything
// found in one DEL. The scan and the DEL are separate round trips, so a key
// created in between survives; the session keys are always removed.
func (s *RedisStore) Clear(ctx context.Context) error {
	keys := s.keys()
	iter := s.rdb.Scan(ctx, 0, s.ns+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return s.rdb.Del(ctx, keys...).Err()
}
