package stubapi

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nutritrack/nutrition-core/internal/domain/account"
	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
)

type userRecord struct {
	user         account.User
	passwordHash []byte
}

// store is the in-memory state behind the stub API.
type store struct {
	mu sync.RWMutex

	usersByID    map[string]*userRecord
	usersByEmail map[string]*userRecord

	catalog   map[string]nutrition.FoodInfo
	overrides map[string]map[string]nutrition.FoodInfo // user id -> barcode -> food
	entries   map[string][]nutrition.FoodEntry         // user id -> entries in insertion order
}

func newStore() *store {
	return &store{
		usersByID:    make(map[string]*userRecord),
		usersByEmail: make(map[string]*userRecord),
		catalog:      make(map[string]nutrition.FoodInfo),
		overrides:    make(map[string]map[string]nutrition.FoodInfo),
		entries:      make(map[string][]nutrition.FoodEntry),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// Users
// =============================================================================

func (s *store) createUser(email, name string, hash []byte) (account.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(email)
	if _, exists := s.usersByEmail[key]; exists {
		return account.User{}, false
	}

	rec := &userRecord{
		user:         account.User{ID: uuid.New().String(), Email: strings.TrimSpace(email), Name: name},
		passwordHash: hash,
	}
	s.usersByID[rec.user.ID] = rec
	s.usersByEmail[key] = rec
	return rec.user, true
}

func (s *store) userByEmail(email string) (*userRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.usersByEmail[normalizeEmail(email)]
	return rec, ok
}

func (s *store) userByID(id string) (account.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.usersByID[id]
	if !ok {
		return account.User{}, false
	}
	return rec.user, true
}

// =============================================================================
// Foods
// =============================================================================

func (s *store) putFood(food nutrition.FoodInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[food.Barcode] = food
}

func (s *store) putOverride(userID string, food nutrition.FoodInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.overrides[userID]
	if !ok {
		m = make(map[string]nutrition.FoodInfo)
		s.overrides[userID] = m
	}
	m[food.Barcode] = food
}

func (s *store) food(barcode string) (nutrition.FoodInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.catalog[barcode]
	return f, ok
}

func (s *store) override(userID, barcode string) (nutrition.FoodInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.overrides[userID][barcode]
	return f, ok
}

// foodFor prefers the user's override over the catalog entry.
func (s *store) foodFor(userID, barcode string) (nutrition.FoodInfo, bool) {
	if f, ok := s.override(userID, barcode); ok {
		return f, true
	}
	return s.food(barcode)
}

// =============================================================================
// Entries
// =============================================================================

func (s *store) addEntry(userID string, food nutrition.FoodInfo, quantity float64, date string) nutrition.FoodEntry {
	entry := nutrition.FoodEntry{
		ID:          uuid.New().String(),
		FoodBarcode: food.Barcode,
		FoodName:    food.Name,
		Calories:    food.Calories * quantity,
		Protein:     food.Protein * quantity,
		Carbs:       food.Carbs * quantity,
		Fat:         food.Fat * quantity,
		Quantity:    quantity,
		Date:        date,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = append(s.entries[userID], entry)
	return entry
}

func (s *store) removeEntry(userID, entryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[userID]
	for i, e := range list {
		if e.ID == entryID {
			s.entries[userID] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func (s *store) ledger(userID, date string) nutrition.DailyLedger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := nutrition.EmptyLedger()
	for _, e := range s.entries[userID] {
		if e.Date != date {
			continue
		}
		l.Entries = append(l.Entries, e)
		l.TotalCalories += e.Calories
		l.TotalProtein += e.Protein
		l.TotalCarbs += e.Carbs
		l.TotalFat += e.Fat
	}
	return l
}

func (s *store) barcodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.catalog))
	for b := range s.catalog {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
