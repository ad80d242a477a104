package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nutritrack/nutrition-core/internal/domain/account"
	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
	"github.com/nutritrack/nutrition-core/internal/kvstore"
	"github.com/nutritrack/nutrition-core/pkg/logger"
)

// Keys used in the persisted store unless overridden.
const (
	DefaultTokenKey = "authToken"
	DefaultUserKey  = "userData"
)

// Remote is the subset of the API client the manager delegates to.
type Remote interface {
	Login(ctx context.Context, req account.LoginRequest) (*account.LoginResponse, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, req account.RegisterRequest) (*account.User, error)
}

// Config configures a Manager.
type Config struct {
	Remote Remote
	Store  kvstore.Store
	// Holder is shared with the API client as its TokenSource. A new one is
	// created when nil.
	Holder   *Holder
	TokenKey string
	UserKey  string
	Logger   *logger.Logger
}

// Manager owns the current session.
type Manager struct {
	remote   Remote
	store    kvstore.Store
	holder   *Holder
	tokenKey string
	userKey  string
	log      *logger.Logger
}

// NewManager creates a session manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Remote == nil {
		return nil, fmt.Errorf("session: Remote is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("session: Store is required")
	}

	holder := cfg.Holder
	if holder == nil {
		holder = NewHolder()
	}
	tokenKey := cfg.TokenKey
	if tokenKey == "" {
		tokenKey = DefaultTokenKey
	}
	userKey := cfg.UserKey
	if userKey == "" {
		userKey = DefaultUserKey
	}
	if tokenKey == userKey {
		return nil, fmt.Errorf("session: token and user keys must differ")
	}

	return &Manager{
		remote:   cfg.Remote,
		store:    cfg.Store,
		holder:   holder,
		tokenKey: tokenKey,
		userKey:  userKey,
		log:      logger.OrDefault(cfg.Logger, "session"),
	}, nil
}

// Holder returns the holder the manager writes to.
func (m *Manager) Holder() *Holder {
	return m.holder
}

// Current returns the current session.
func (m *Manager) Current() Session {
	return m.holder.Session()
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return !m.holder.Session().IsEmpty()
}

// Restore adopts the persisted session when both the token and a parseable
// user record are present. Any read or parse problem yields the empty
// session; Restore never fails.
func (m *Manager) Restore(ctx context.Context) Session {
	token, err := m.store.Get(ctx, m.tokenKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			m.log.WithError(err).Warn("Reading persisted token failed; starting logged out")
		}
		m.holder.clear()
		return Session{}
	}

	raw, err := m.store.Get(ctx, m.userKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			m.log.WithError(err).Warn("Reading persisted user failed; starting logged out")
		}
		m.holder.clear()
		return Session{}
	}

	var user account.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || !user.Valid() || strings.TrimSpace(token) == "" {
		m.log.WithField("parse_error", err).Warn("Persisted session is malformed; starting logged out")
		m.holder.clear()
		return Session{}
	}

	s := Session{Token: token, User: &user}
	m.holder.set(s)
	m.log.WithField("user_id", user.ID).Debug("Session restored")
	return s.clone()
}

// Login authenticates against the remote service and adopts the returned
// session. The token is persisted before the user record; if either write
// fails the stored session is cleared, so the session is used for this run
// but will not survive a restart. On failure the current session is left
// unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Session{}, apierrors.Required("email")
	}
	if password == "" {
		return Session{}, apierrors.Required("password")
	}

	resp, err := m.remote.Login(ctx, account.LoginRequest{Email: email, Password: password})
	if err != nil {
		m.log.WithError(err).WithField("email", email).Info("Login failed")
		return Session{}, err
	}
	if resp == nil || strings.TrimSpace(resp.Token) == "" || !resp.User.Valid() {
		return Session{}, apierrors.Internal("login", errors.New("response is missing token or user"))
	}

	user := resp.User
	s := Session{Token: resp.Token, User: &user}
	m.persist(ctx, s)
	m.holder.set(s)

	m.log.WithField("user_id", user.ID).Info("Logged in")
	return s.clone(), nil
}

// persist replaces the stored session with s. Any previous keys are removed
// first and a partial write is rolled back, so the store never pairs one
// account's token with another account's user.
func (m *Manager) persist(ctx context.Context, s Session) {
	m.clearPersisted(ctx)

	if err := m.store.Set(ctx, m.tokenKey, s.Token); err != nil {
		m.log.WithError(err).Warn("Persisting token failed; session will not survive restart")
		m.clearPersisted(ctx)
		return
	}

	raw, err := json.Marshal(s.User)
	if err == nil {
		err = m.store.Set(ctx, m.userKey, string(raw))
	}
	if err != nil {
		m.log.WithError(err).Warn("Persisting user failed; session will not survive restart")
		m.clearPersisted(ctx)
	}
}

// clearPersisted removes both session keys. It ignores cancellation of ctx
// so a logout interrupted mid-flight still clears local state.
func (m *Manager) clearPersisted(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range []string{m.tokenKey, m.userKey} {
		if err := m.store.Delete(ctx, key); err != nil {
			m.log.WithError(err).WithField("key", key).Warn("Removing persisted session key failed")
		}
	}
}

// Logout revokes the token remotely on a best-effort basis, then always
// removes the persisted keys and resets the session to empty.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.remote.Logout(ctx); err != nil {
		m.log.WithError(err).Warn("Remote logout failed; clearing local session anyway")
	}

	m.clearPersisted(ctx)
	m.holder.clear()
	m.log.Info("Logged out")
}

// Register creates an account. It does not sign the user in; a Login must
// follow.
func (m *Manager) Register(ctx context.Context, email, password, name string) (account.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return account.User{}, apierrors.Required("email")
	}
	if password == "" {
		return account.User{}, apierrors.Required("password")
	}

	user, err := m.remote.Register(ctx, account.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     strings.TrimSpace(name),
	})
	if err != nil {
		m.log.WithError(err).WithField("email", email).Info("Registration failed")
		return account.User{}, err
	}
	if user == nil || !user.Valid() {
		return account.User{}, apierrors.Internal("register", errors.New("response is missing user"))
	}

	m.log.WithField("user_id", user.ID).Info("Registered")
	return *user, nil
}
