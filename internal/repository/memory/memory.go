// Package memory implements the repositories in process memory, for
// development servers and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/repository"
)

// Users implements repository.UserRepository.
type Users struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]model.User
}

var _ repository.UserRepository = (*Users)(nil)

func NewUsers() *Users { return &Users{byID: make(map[uuid.UUID]model.User)} }

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byID {
		if e.Username == u.Username || strings.EqualFold(e.Email, u.Email) {
			return errs.ErrAlreadyExists
		}
	}
	r.byID[u.ID] = *u
	return nil
}

func (r *Users) find(match func(model.User) bool) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if match(u) {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *Users) UpdatePassword(_ context.Context, id uuid.UUID, hash, salt []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PwdHash, u.SaltAuth = hash, salt
	r.byID[id] = u
	return nil
}

// RefreshTokens implements repository.RefreshTokenRepository.
type RefreshTokens struct {
	mu     sync.Mutex
	byHash map[string]model.RefreshToken
}

var _ repository.RefreshTokenRepository = (*RefreshTokens)(nil)

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{byHash: make(map[string]model.RefreshToken)}
}

func (r *RefreshTokens) Create(_ context.Context, t model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[string(t.Hash)] = t
	return nil
}

func (r *RefreshTokens) Rotate(_ context.Context, oldHash []byte, next model.RefreshToken, now time.Time) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byHash[string(oldHash)]
	if !ok {
		return uuid.Nil, errs.ErrNotFound
	}
	if !old.Active(now) {
		return uuid.Nil, errs.ErrExpired
	}
	old.RevokedAt = &now
	r.byHash[string(oldHash)] = old
	next.UserID = old.UserID
	r.byHash[string(next.Hash)] = next
	return old.UserID, nil
}

func (r *RefreshTokens) Revoke(_ context.Context, hash []byte, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byHash[string(hash)]
	if !ok || t.RevokedAt != nil {
		return errs.ErrNotFound
	}
	t.RevokedAt = &now
	r.byHash[string(hash)] = t
	return nil
}

func (r *RefreshTokens) RevokeAllForUser(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.byHash {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.byHash[k] = t
			n++
		}
	}
	return n, nil
}

// Watchlist implements repository.WatchlistRepository.
type Watchlist struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID][]model.WatchlistItem
}

var _ repository.WatchlistRepository = (*Watchlist)(nil)

func NewWatchlist() *Watchlist {
	return &Watchlist{byUser: make(map[uuid.UUID][]model.WatchlistItem)}
}

// List orders like the SQL implementation: priority desc, then oldest first.
func (r *Watchlist) List(_ context.Context, userID uuid.UUID) ([]model.WatchlistItem, error) {
	r.mu.RLock()
	out := append([]model.WatchlistItem(nil), r.byUser[userID]...)
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].DateAdded.Before(out[j].DateAdded)
	})
	return out, nil
}

func (r *Watchlist) Add(_ context.Context, userID uuid.UUID, it model.WatchlistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byUser[userID] {
		if e.Symbol == it.Symbol {
			return errs.ErrAlreadyExists
		}
	}
	r.byUser[userID] = append(r.byUser[userID], it)
	return nil
}

func (r *Watchlist) Remove(_ context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byUser[userID]
	for i, e := range list {
		if e.ID == id {
			r.byUser[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}
