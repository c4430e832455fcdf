package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps a failure counter that expires after the window and a block
// key that expires after the lockout. It suits several server replicas
// sharing one Redis.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	policy Policy
}

var _ Limiter = (*Redis)(nil)

// NewRedis builds a limiter storing keys under prefix ("login" if empty).
func NewRedis(rdb redis.UniversalClient, prefix string, p Policy) *Redis {
	if prefix == "" {
		prefix = "login"
	}
	return &Redis{rdb: rdb, prefix: prefix, policy: p}
}

func (l *Redis) keys(username string, ipHash []byte) (fails, block string) {
	base := l.prefix + ":" + username + ":" + hex.EncodeToString(ipHash)
	return base + ":fails", base + ":block"
}

func (l *Redis) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	_, block := l.keys(username, ipHash)
	ttl, err := l.rdb.PTTL(ctx, block).Result()
	if err != nil {
		return false, 0, err
	}
	// -2: no key, -1: no expiry (never set by us).
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

func (l *Redis) Success(ctx context.Context, username string, ipHash []byte) error {
	fails, block := l.keys(username, ipHash)
	return l.rdb.Del(ctx, fails, block).Err()
}

func (l *Redis) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := l.keys(username, ipHash)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, fails)
		p.ExpireNX(ctx, fails, l.policy.Window)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if incr.Val() < int64(l.policy.MaxFails) {
		return false, 0, nil
	}
	_, err = l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, block, 1, l.policy.BlockFor)
		p.Del(ctx, fails)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return true, l.policy.BlockFor, nil
}
