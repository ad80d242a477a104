package ledger

import (
	"context"

	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
)

// Source names reported in logs and metrics.
const (
	SourcePersonalized = "personalized"
	SourceGeneric      = "generic"
)

// Remote is the subset of the API client the coordinator needs.
type Remote interface {
	FoodInfo(ctx context.Context, barcode string) (*nutrition.FoodInfo, error)
	UserFoodInfo(ctx context.Context, barcode string) (*nutrition.FoodInfo, error)
	DailyLedger(ctx context.Context, userID, date string) (*nutrition.DailyLedger, error)
	AddFoodEntry(ctx context.Context, userID string, req nutrition.AddFoodEntryRequest) (*nutrition.FoodEntry, error)
	RemoveFoodEntry(ctx context.Context, userID, entryID string) error
}

// FoodSource resolves a barcode to food data. Sources are tried in order and
// any error moves resolution on to the next one.
type FoodSource interface {
	Name() string
	Lookup(ctx context.Context, barcode string) (*nutrition.FoodInfo, error)
}

type lookupFunc func(ctx context.Context, barcode string) (*nutrition.FoodInfo, error)

type funcSource struct {
	name   string
	lookup lookupFunc
}

func (s funcSource) Name() string { return s.name }

func (s funcSource) Lookup(ctx context.Context, barcode string) (*nutrition.FoodInfo, error) {
	return s.lookup(ctx, barcode)
}

// NewSource adapts a lookup function into a FoodSource.
func NewSource(name string, lookup func(ctx context.Context, barcode string) (*nutrition.FoodInfo, error)) FoodSource {
	return funcSource{name: name, lookup: lookup}
}

// PersonalizedSource looks barcodes up with the signed-in user's overrides.
func PersonalizedSource(r Remote) FoodSource {
	return NewSource(SourcePersonalized, r.UserFoodInfo)
}

// GenericSource looks barcodes up in the shared catalog.
func GenericSource(r Remote) FoodSource {
	return NewSource(SourceGeneric, r.FoodInfo)
}

// DefaultSources is the personalized-then-generic resolution order.
func DefaultSources(r Remote) []FoodSource {
	return []FoodSource{PersonalizedSource(r), GenericSource(r)}
}
