// Package testutil provides shared test doubles for the session, client and
// ledger layers.
package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nutritrack/nutrition-core/internal/domain/account"
	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
	"github.com/nutritrack/nutrition-core/internal/kvstore"
)

// =============================================================================
// Auth
// =============================================================================

// MockAuth is a scripted auth remote. Zero value answers every call with a 500.
type MockAuth struct {
	mu sync.Mutex

	LoginResponse    *account.LoginResponse
	LoginErr         error
	LogoutErr        error
	RegisterResponse *account.User
	RegisterErr      error

	LoginCalls    []account.LoginRequest
	LogoutCalls   int
	RegisterCalls []account.RegisterRequest
}

// Login records req and returns the scripted response.
func (m *MockAuth) Login(_ context.Context, req account.LoginRequest) (*account.LoginResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoginCalls = append(m.LoginCalls, req)
	if m.LoginErr != nil {
		return nil, m.LoginErr
	}
	if m.LoginResponse == nil {
		return nil, apierrors.Transport("login", 500, "", "")
	}
	resp := *m.LoginResponse
	return &resp, nil
}

// Logout counts the call and returns LogoutErr.
func (m *MockAuth) Logout(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogoutCalls++
	return m.LogoutErr
}

// Register records req and returns the scripted user.
func (m *MockAuth) Register(_ context.Context, req account.RegisterRequest) (*account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegisterCalls = append(m.RegisterCalls, req)
	if m.RegisterErr != nil {
		return nil, m.RegisterErr
	}
	if m.RegisterResponse == nil {
		return nil, apierrors.Transport("register", 500, "", "")
	}
	u := *m.RegisterResponse
	return &u, nil
}

// =============================================================================
// Ledger Remote
// =============================================================================

// MockLedgerAPI is a scripted nutrition remote. Unset funcs fail with a 500.
type MockLedgerAPI struct {
	mu    sync.Mutex
	calls []string

	FoodInfoFunc        func(barcode string) (*nutrition.FoodInfo, error)
	UserFoodInfoFunc    func(barcode string) (*nutrition.FoodInfo, error)
	DailyLedgerFunc     func(userID, date string) (*nutrition.DailyLedger, error)
	AddFoodEntryFunc    func(userID string, req nutrition.AddFoodEntryRequest) (*nutrition.FoodEntry, error)
	RemoveFoodEntryFunc func(userID, entryID string) error
}

func (m *MockLedgerAPI) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
}

// Calls returns the operations invoked so far, in order.
func (m *MockLedgerAPI) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// FoodInfo implements the generic lookup.
func (m *MockLedgerAPI) FoodInfo(_ context.Context, barcode string) (*nutrition.FoodInfo, error) {
	m.record("food-info")
	if m.FoodInfoFunc == nil {
		return nil, apierrors.Transport("food-info", 500, "", "")
	}
	return m.FoodInfoFunc(barcode)
}

// UserFoodInfo implements the personalized lookup.
func (m *MockLedgerAPI) UserFoodInfo(_ context.Context, barcode string) (*nutrition.FoodInfo, error) {
	m.record("user-food-info")
	if m.UserFoodInfoFunc == nil {
		return nil, apierrors.Transport("user-food-info", 500, "", "")
	}
	return m.UserFoodInfoFunc(barcode)
}

// DailyLedger implements the ledger read.
func (m *MockLedgerAPI) DailyLedger(_ context.Context, userID, date string) (*nutrition.DailyLedger, error) {
	m.record("daily-ledger")
	if m.DailyLedgerFunc == nil {
		return nil, apierrors.Transport("daily-ledger", 500, "", "")
	}
	return m.DailyLedgerFunc(userID, date)
}

// AddFoodEntry implements the ledger add.
func (m *MockLedgerAPI) AddFoodEntry(_ context.Context, userID string, req nutrition.AddFoodEntryRequest) (*nutrition.FoodEntry, error) {
	m.record("add-food-entry")
	if m.AddFoodEntryFunc == nil {
		return nil, apierrors.Transport("add-food-entry", 500, "", "")
	}
	return m.AddFoodEntryFunc(userID, req)
}

// RemoveFoodEntry implements the ledger remove.
func (m *MockLedgerAPI) RemoveFoodEntry(_ context.Context, userID, entryID string) error {
	m.record("remove-food-entry")
	if m.RemoveFoodEntryFunc == nil {
		return apierrors.Transport("remove-food-entry", 500, "", "")
	}
	return m.RemoveFoodEntryFunc(userID, entryID)
}

// =============================================================================
// Store
// =============================================================================

// FlakyStore wraps a store and fails selected operations per key.
type FlakyStore struct {
	kvstore.Store

	mu        sync.Mutex
	getErr    map[string]error
	setErr    map[string]error
	deleteErr map[string]error
}

// NewFlakyStore wraps inner, or a fresh memory store when inner is nil.
func NewFlakyStore(inner kvstore.Store) *FlakyStore {
	if inner == nil {
		inner = kvstore.NewMemory()
	}
	return &FlakyStore{
		Store:     inner,
		getErr:    make(map[string]error),
		setErr:    make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

// FailGet makes Get(key) return err.
func (f *FlakyStore) FailGet(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr[key] = err
}

// FailSet makes Set(key, ...) return err.
func (f *FlakyStore) FailSet(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr[key] = err
}

// FailDelete makes Delete(key) return err without deleting.
func (f *FlakyStore) FailDelete(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr[key] = err
}

// Get implements kvstore.Store.
func (f *FlakyStore) Get(ctx context.Context, key string) (string, error) {
	if err := f.failure(f.getErr, key); err != nil {
		return "", err
	}
	return f.Store.Get(ctx, key)
}

// Set implements kvstore.Store.
func (f *FlakyStore) Set(ctx context.Context, key, value string) error {
	if err := f.failure(f.setErr, key); err != nil {
		return err
	}
	return f.Store.Set(ctx, key, value)
}

// Delete implements kvstore.Store.
func (f *FlakyStore) Delete(ctx context.Context, key string) error {
	if err := f.failure(f.deleteErr, key); err != nil {
		return err
	}
	return f.Store.Delete(ctx, key)
}

func (f *FlakyStore) failure(m map[string]error, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return m[key]
}

// =============================================================================
// Helpers
// =============================================================================

// GenerateID returns a random identifier.
func GenerateID() string {
	return uuid.New().String()
}

// Banana is the reference generic food used across tests.
func Banana() nutrition.FoodInfo {
	return nutrition.FoodInfo{Barcode: "0001", Name: "Banana", Calories: 105, Protein: 1, Carbs: 27, Fat: 0}
}
