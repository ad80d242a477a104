// Package nutrition holds the food and ledger shapes exchanged with the
// nutrition endpoints.
package nutrition

import "time"

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// FoodInfo is immutable reference data for one barcode. Generic and
// personalized lookups both produce this shape.
type FoodInfo struct {
	Barcode     string  `json:"barcode"`
	Name        string  `json:"name"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
	ServingSize string  `json:"servingSize,omitempty"`
}

// FoodEntry is one ledger line. Values are computed by the server with
// Quantity already applied.
type FoodEntry struct {
	ID          string  `json:"id"`
	FoodBarcode string  `json:"foodBarcode"`
	FoodName    string  `json:"foodName"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
	Quantity    float64 `json:"quantity"`
	Date        string  `json:"date"`
}

// DailyLedger is the server-computed snapshot for one user and date. Totals
// are never recomputed locally.
type DailyLedger struct {
	TotalCalories float64     `json:"totalCalories"`
	TotalProtein  float64     `json:"totalProtein"`
	TotalCarbs    float64     `json:"totalCarbs"`
	TotalFat      float64     `json:"totalFat"`
	Entries       []FoodEntry `json:"entries"`
}

// EmptyLedger returns the fail-soft ledger {0,0,0,0,[]}.
func EmptyLedger() DailyLedger {
	return DailyLedger{Entries: []FoodEntry{}}
}

// Normalize replaces a nil entry list with an empty one.
func (l DailyLedger) Normalize() DailyLedger {
	if l.Entries == nil {
		l.Entries = []FoodEntry{}
	}
	return l
}

// IsEmpty reports whether the ledger has no entries and zero totals.
func (l DailyLedger) IsEmpty() bool {
	return len(l.Entries) == 0 && l.TotalCalories == 0 && l.TotalProtein == 0 &&
		l.TotalCarbs == 0 && l.TotalFat == 0
}

// AddFoodEntryRequest is the body of POST /users/{userId}/food-entries.
type AddFoodEntryRequest struct {
	FoodBarcode string  `json:"foodBarcode"`
	Quantity    float64 `json:"quantity"`
	Date        string  `json:"date"`
}

// FormatDate renders t as a calendar date in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
