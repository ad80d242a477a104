package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutritrack/nutrition-core/client"
	"github.com/nutritrack/nutrition-core/internal/domain/account"
	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
	"github.com/nutritrack/nutrition-core/internal/kvstore"
	"github.com/nutritrack/nutrition-core/pkg/logger"
	"github.com/nutritrack/nutrition-core/pkg/testutil"
)

func newManager(t *testing.T, remote Remote, store kvstore.Store) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Remote: remote,
		Store:  store,
		Logger: logger.NewDiscard("session-test"),
	})
	require.NoError(t, err)
	return m
}

func loggedInAuth() *testutil.MockAuth {
	return &testutil.MockAuth{
		LoginResponse: &account.LoginResponse{
			Token: "T1",
			User:  account.User{ID: "U1", Email: "a@b.com"},
		},
	}
}

// =============================================================================
// NewManager Tests
// =============================================================================

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(Config{Store: kvstore.NewMemory()})
	assert.Error(t, err)

	_, err = NewManager(Config{Remote: &testutil.MockAuth{}})
	assert.Error(t, err)

	_, err = NewManager(Config{Remote: &testutil.MockAuth{}, Store: kvstore.NewMemory(), TokenKey: "k", UserKey: "k"})
	assert.Error(t, err)
}

func TestNewManager_Defaults(t *testing.T) {
	m := newManager(t, &testutil.MockAuth{}, kvstore.NewMemory())

	assert.Equal(t, DefaultTokenKey, m.tokenKey)
	assert.Equal(t, DefaultUserKey, m.userKey)
	assert.NotNil(t, m.Holder())
	assert.True(t, m.Current().IsEmpty())
	assert.False(t, m.IsAuthenticated())
}

// =============================================================================
// Login Tests
// =============================================================================

func TestLogin(t *testing.T) {
	store := kvstore.NewMemory()
	auth := loggedInAuth()
	m := newManager(t, auth, store)

	s, err := m.Login(context.Background(), " a@b.com ", "x")
	require.NoError(t, err)

	assert.Equal(t, "T1", s.Token)
	assert.Equal(t, "U1", s.UserID())
	assert.Equal(t, "T1", m.Holder().Token())
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, []account.LoginRequest{{Email: "a@b.com", Password: "x"}}, auth.LoginCalls)

	token, err := store.Get(context.Background(), DefaultTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "T1", token)

	raw, err := store.Get(context.Background(), DefaultUserKey)
	require.NoError(t, err)
	var user account.User
	require.NoError(t, json.Unmarshal([]byte(raw), &user))
	assert.Equal(t, account.User{ID: "U1", Email: "a@b.com"}, user)
}

func TestLogin_ThenRestoreYieldsIdenticalSession(t *testing.T) {
	store := kvstore.NewMemory()

	first := newManager(t, loggedInAuth(), store)
	loggedIn, err := first.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	// A fresh manager over the same store simulates a process restart.
	second := newManager(t, &testutil.MockAuth{}, store)
	restored := second.Restore(context.Background())

	assert.Equal(t, loggedIn, restored)
	assert.Equal(t, "T1", second.Holder().Token())
}

func TestLogin_FailureLeavesSessionUnchanged(t *testing.T) {
	store := kvstore.NewMemory()
	auth := loggedInAuth()
	m := newManager(t, auth, store)

	before, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	auth.LoginErr = apierrors.Transport("login", http.StatusUnauthorized, "", "bad credentials")
	_, err = m.Login(context.Background(), "a@b.com", "wrong")

	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrTransport)
	assert.Equal(t, before, m.Current())
}

func TestLogin_Validation(t *testing.T) {
	auth := loggedInAuth()
	m := newManager(t, auth, kvstore.NewMemory())

	_, err := m.Login(context.Background(), " ", "x")
	assert.ErrorIs(t, err, apierrors.ErrValidation)

	_, err = m.Login(context.Background(), "a@b.com", "")
	assert.ErrorIs(t, err, apierrors.ErrValidation)

	assert.Empty(t, auth.LoginCalls)
}

func TestLogin_MalformedResponse(t *testing.T) {
	auth := &testutil.MockAuth{LoginResponse: &account.LoginResponse{Token: "T1"}}
	m := newManager(t, auth, kvstore.NewMemory())

	_, err := m.Login(context.Background(), "a@b.com", "x")
	assert.ErrorIs(t, err, apierrors.ErrInternal)
	assert.True(t, m.Current().IsEmpty())
}

func TestLogin_UserWriteFailureKeepsInMemorySession(t *testing.T) {
	store := testutil.NewFlakyStore(nil)
	store.FailSet(DefaultUserKey, errors.New("disk full"))
	m := newManager(t, loggedInAuth(), store)

	s, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "T1", s.Token)
	assert.True(t, m.IsAuthenticated())

	// After a restart only the token is found, which is not a usable session.
	restarted := newManager(t, &testutil.MockAuth{}, store)
	assert.True(t, restarted.Restore(context.Background()).IsEmpty())
}

func TestLogin_TokenWriteFailureSkipsUserWrite(t *testing.T) {
	store := testutil.NewFlakyStore(nil)
	store.FailSet(DefaultTokenKey, errors.New("read-only"))
	m := newManager(t, loggedInAuth(), store)

	_, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), DefaultUserKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestLogin_PartialWriteOverPreviousSessionRestoresEmpty(t *testing.T) {
	tests := []struct {
		name    string
		failKey string
	}{
		{"user write fails", DefaultUserKey},
		{"token write fails", DefaultTokenKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := testutil.NewFlakyStore(nil)

			first := newManager(t, &testutil.MockAuth{
				LoginResponse: &account.LoginResponse{
					Token: "TA",
					User:  account.User{ID: "UA", Email: "a@x.com"},
				},
			}, store)
			_, err := first.Login(ctx, "a@x.com", "x")
			require.NoError(t, err)

			store.FailSet(tt.failKey, errors.New("disk full"))
			second := newManager(t, &testutil.MockAuth{
				LoginResponse: &account.LoginResponse{
					Token: "TB",
					User:  account.User{ID: "UB", Email: "b@x.com"},
				},
			}, store)
			s, err := second.Login(ctx, "b@x.com", "y")
			require.NoError(t, err)
			assert.Equal(t, "TB", s.Token)
			assert.Equal(t, "UB", s.User.ID)

			restored := newManager(t, &testutil.MockAuth{}, store).Restore(ctx)
			assert.True(t, restored.IsEmpty(), "restored %+v", restored)

			_, err = store.Get(ctx, DefaultTokenKey)
			assert.ErrorIs(t, err, kvstore.ErrNotFound)
			_, err = store.Get(ctx, DefaultUserKey)
			assert.ErrorIs(t, err, kvstore.ErrNotFound)
		})
	}
}

// =============================================================================
// Logout Tests
// =============================================================================

func TestLogout_ClearsEvenWhenRemoteFails(t *testing.T) {
	store := kvstore.NewMemory()
	auth := loggedInAuth()
	m := newManager(t, auth, store)

	_, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	auth.LogoutErr = apierrors.Network("logout", errors.New("connection refused"))
	m.Logout(context.Background())

	assert.Equal(t, 1, auth.LogoutCalls)
	assert.True(t, m.Current().IsEmpty())
	assert.Equal(t, "", m.Holder().Token())
	assert.Equal(t, 0, store.Len())
	assert.True(t, newManager(t, auth, store).Restore(context.Background()).IsEmpty())
}

func TestLogout_ClearsWhenStoreDeleteFails(t *testing.T) {
	store := testutil.NewFlakyStore(nil)
	m := newManager(t, loggedInAuth(), store)

	_, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	store.FailDelete(DefaultTokenKey, errors.New("locked"))
	m.Logout(context.Background())

	assert.True(t, m.Current().IsEmpty())
	_, err = store.Get(context.Background(), DefaultUserKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestLogout_CancelledContextStillClearsStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := kvstore.NewSQL(sqlx.NewDb(db, "postgres"), "")
	require.NoError(t, err)

	auth := &testutil.MockAuth{LogoutErr: context.Canceled}
	m := newManager(t, auth, store)

	del := regexp.QuoteMeta("DELETE FROM kv_store WHERE key = $1")
	mock.ExpectExec(del).WithArgs(DefaultTokenKey).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(del).WithArgs(DefaultUserKey).WillReturnResult(sqlmock.NewResult(0, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Logout(ctx)

	assert.Equal(t, 1, auth.LogoutCalls)
	assert.True(t, m.Current().IsEmpty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// =============================================================================
// Restore Tests
// =============================================================================

func TestRestore_DegradesToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *testutil.FlakyStore)
	}{
		{"nothing stored", func(s *testutil.FlakyStore) {}},
		{"token only", func(s *testutil.FlakyStore) {
			s.Set(context.Background(), DefaultTokenKey, "T1")
		}},
		{"user only", func(s *testutil.FlakyStore) {
			s.Set(context.Background(), DefaultUserKey, `{"id":"U1"}`)
		}},
		{"malformed user", func(s *testutil.FlakyStore) {
			s.Set(context.Background(), DefaultTokenKey, "T1")
			s.Set(context.Background(), DefaultUserKey, `{"id":`)
		}},
		{"user without id", func(s *testutil.FlakyStore) {
			s.Set(context.Background(), DefaultTokenKey, "T1")
			s.Set(context.Background(), DefaultUserKey, `{"email":"a@b.com"}`)
		}},
		{"blank token", func(s *testutil.FlakyStore) {
			s.Set(context.Background(), DefaultTokenKey, " ")
			s.Set(context.Background(), DefaultUserKey, `{"id":"U1"}`)
		}},
		{"read error", func(s *testutil.FlakyStore) {
			s.Set(context.Background(), DefaultTokenKey, "T1")
			s.Set(context.Background(), DefaultUserKey, `{"id":"U1"}`)
			s.FailGet(DefaultUserKey, errors.New("io error"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewFlakyStore(nil)
			tt.setup(store)
			m := newManager(t, loggedInAuth(), store)

			// A previously adopted session must not leak through a failed restore.
			m.holder.set(Session{Token: "OLD", User: &account.User{ID: "OLD"}})

			s := m.Restore(context.Background())
			assert.True(t, s.IsEmpty())
			assert.Equal(t, Session{}, s)
			assert.Equal(t, "", m.Holder().Token())
		})
	}
}

func TestRestore_WithName(t *testing.T) {
	store := kvstore.NewMemory()
	store.Set(context.Background(), DefaultTokenKey, "T9")
	store.Set(context.Background(), DefaultUserKey, `{"id":"U9","email":"n@b.com","name":"Nia"}`)

	m := newManager(t, &testutil.MockAuth{}, store)
	s := m.Restore(context.Background())

	assert.Equal(t, "T9", s.Token)
	assert.Equal(t, &account.User{ID: "U9", Email: "n@b.com", Name: "Nia"}, s.User)
}

// =============================================================================
// Register Tests
// =============================================================================

func TestRegister_DoesNotCreateSession(t *testing.T) {
	store := kvstore.NewMemory()
	auth := &testutil.MockAuth{RegisterResponse: &account.User{ID: "U2", Email: "n@b.com", Name: "Nia"}}
	m := newManager(t, auth, store)

	user, err := m.Register(context.Background(), "n@b.com", "pw", " Nia ")
	require.NoError(t, err)

	assert.Equal(t, "U2", user.ID)
	assert.Equal(t, "Nia", auth.RegisterCalls[0].Name)
	assert.True(t, m.Current().IsEmpty())
	assert.Equal(t, 0, store.Len())
}

func TestRegister_Failure(t *testing.T) {
	auth := &testutil.MockAuth{RegisterErr: apierrors.Transport("register", http.StatusConflict, "", "email taken")}
	m := newManager(t, auth, kvstore.NewMemory())

	_, err := m.Register(context.Background(), "n@b.com", "pw", "")
	assert.Equal(t, http.StatusConflict, apierrors.StatusCode(err))

	_, err = m.Register(context.Background(), "", "pw", "")
	assert.ErrorIs(t, err, apierrors.ErrValidation)
	assert.Len(t, auth.RegisterCalls, 1)
}

func TestRegister_ResponseWithoutUser(t *testing.T) {
	auth := &testutil.MockAuth{RegisterResponse: &account.User{}}
	m := newManager(t, auth, kvstore.NewMemory())

	_, err := m.Register(context.Background(), "n@b.com", "pw", "")
	assert.ErrorIs(t, err, apierrors.ErrInternal)
}

// =============================================================================
// Client Integration
// =============================================================================

func TestLogin_SubsequentCallsCarryBearerToken(t *testing.T) {
	var (
		mu    sync.Mutex
		seen  []string
		auths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/auth/token":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"token": "T1",
				"user":  map[string]string{"id": "U1", "email": "a@b.com"},
			})
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{"entries": []interface{}{}})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	holder := NewHolder()
	api, err := client.New(client.Config{BaseURL: server.URL, Tokens: holder, Logger: logger.NewDiscard("client-test")})
	require.NoError(t, err)

	m, err := NewManager(Config{Remote: api, Store: kvstore.NewMemory(), Holder: holder, Logger: logger.NewDiscard("session-test")})
	require.NoError(t, err)

	s, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "T1", User: &account.User{ID: "U1", Email: "a@b.com"}}, s)

	_, err = api.DailyLedger(context.Background(), "U1", "2026-10-15")
	require.NoError(t, err)
	m.Logout(context.Background())

	_, err = api.DailyLedger(context.Background(), "U1", "2026-10-16")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /auth/token",
		"GET /users/U1/food-entries",
		"DELETE /auth/token",
		"GET /users/U1/food-entries",
	}, seen)
	assert.Equal(t, []string{"", "Bearer T1", "Bearer T1", ""}, auths)
}
