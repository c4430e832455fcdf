package limiter

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	fails        int
	first        time.Time
	blockedUntil time.Time
}

// Memory is a single-process limiter for development servers.
type Memory struct {
	mu     sync.Mutex
	m      map[string]*memEntry
	policy Policy
	now    func() time.Time
}

var _ Limiter = (*Memory)(nil)

func NewMemory(p Policy) *Memory {
	return &Memory{m: make(map[string]*memEntry), policy: p, now: time.Now}
}

func memKey(username string, ipHash []byte) string { return username + "\x00" + string(ipHash) }

func (l *Memory) Allow(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.m[memKey(username, ipHash)]; ok {
		if wait := e.blockedUntil.Sub(l.now()); wait > 0 {
			return false, wait, nil
		}
	}
	return true, 0, nil
}

func (l *Memory) Success(_ context.Context, username string, ipHash []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.m, memKey(username, ipHash))
	return nil
}

func (l *Memory) Failure(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	k := memKey(username, ipHash)
	e, ok := l.m[k]
	if !ok || now.Sub(e.first) > l.policy.Window {
		e = &memEntry{first: now}
		l.m[k] = e
	}
	e.fails++
	if e.fails < l.policy.MaxFails {
		return false, 0, nil
	}
	e.fails, e.first = 0, now
	e.blockedUntil = now.Add(l.policy.BlockFor)
	return true, l.policy.BlockFor, nil
}
