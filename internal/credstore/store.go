// Package credstore persists the session credentials between runs.
//
// A store is a passive mirror of the session: it is read once when the
// session opens and written on every session change. Reads fail soft, an
// unreadable store is reported as empty.
package credstore

import (
	"context"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/model"
)

// DefaultNamespace prefixes every key the application owns.
const DefaultNamespace = "stockfolio"

// Keys of the three session fields.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

var sessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Snapshot is the persisted form of a session. Every field is independently optional.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	User         *model.UserProfile
}

// Empty reports whether nothing is stored.
func (s Snapshot) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.User == nil
}

// Session converts the snapshot to a session, reporting whether all three
// fields were present.
func (s Snapshot) Session() (model.Session, bool) {
	sess := model.Session{User: s.User, AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	return sess, sess.Authenticated()
}

// Store is durable key-value storage for the session fields.
type Store interface {
	// Read returns whatever is stored. Errors are logged and read as absent.
	Read(ctx context.Context) Snapshot
	// Write replaces all three fields at once; readers never observe a mix
	// of the old and new values.
	Write(ctx context.Context, s Snapshot) error
	// Clear removes the session and every other key under the namespace.
	Clear(ctx context.Context) error
}

// toFields encodes a snapshot into string values; empty fields are omitted.
func toFields(s Snapshot) (map[string]string, error) {
	out := make(map[string]string, len(sessionKeys))
	if s.AccessToken != "" {
		out[KeyAccessToken] = s.AccessToken
	}
	if s.RefreshToken != "" {
		out[KeyRefreshToken] = s.RefreshToken
	}
	if s.User != nil {
		b, err := json.Marshal(s.User)
		if err != nil {
			return nil, err
		}
		out[KeyUser] = string(b)
	}
	return out, nil
}

// fromFields decodes stored values; a corrupt user is dropped.
func fromFields(m map[string]string, log *zap.Logger) Snapshot {
	s := Snapshot{AccessToken: m[KeyAccessToken], RefreshToken: m[KeyRefreshToken]}
	if raw := m[KeyUser]; raw != "" {
		var u model.UserProfile
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			log.Warn("credstore: stored user unreadable, ignoring", zap.Error(err))
		} else {
			s.User = &u
		}
	}
	return s
}
