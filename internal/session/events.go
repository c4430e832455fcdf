package session

import "github.com/and161185/stockfolio/internal/model"

// EventKind identifies a session transition.
type EventKind int

const (
	LoggedIn EventKind = iota + 1
	Refreshed
	LoggedOut
	// Expired is published once when the session ends because no valid
	// token could be obtained. Observers treat it as "go to login".
	Expired
)

func (k EventKind) String() string {
	switch k {
	case LoggedIn:
		return "logged-in"
	case Refreshed:
		return "refreshed"
	case LoggedOut:
		return "logged-out"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Event is delivered to observers after the state change is visible.
type Event struct {
	Kind  EventKind
	User  *model.UserProfile
	Cause error // set for Expired
}
