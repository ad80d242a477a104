// Package session owns the bearer-token lifecycle: login, logout, registration
// and restoring a persisted session after a process restart.
//
// The current session lives in a Holder that the manager owns and mutates.
// The remote client reads the token from the same Holder through its
// TokenSource interface, so there is no process-wide global.
package session

import (
	"sync"

	"github.com/nutritrack/nutrition-core/internal/domain/account"
)

// Session is the authenticated identity for the current run. Token and User
// are either both set or both empty.
type Session struct {
	Token string
	User  *account.User
}

// IsEmpty reports whether s is the logged-out session.
func (s Session) IsEmpty() bool {
	return s.Token == "" || s.User == nil
}

// UserID returns the signed-in user's id, or "".
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

func (s Session) clone() Session {
	if s.IsEmpty() {
		return Session{}
	}
	u := *s.User
	return Session{Token: s.Token, User: &u}
}

// Holder carries the current Session. Only the Manager writes to it.
type Holder struct {
	mu      sync.RWMutex
	current Session
}

// NewHolder creates a holder with the empty session.
func NewHolder() *Holder {
	return &Holder{}
}

// Token returns the current bearer token, or "" when logged out.
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Token
}

// Session returns a copy of the current session.
func (h *Holder) Session() Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.clone()
}

func (h *Holder) set(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = s.clone()
}

func (h *Holder) clear() {
	h.set(Session{})
}
