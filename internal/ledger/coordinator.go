// Package ledger resolves barcodes to food data and manages the daily food
// ledger shown to the user.
//
// The coordinator never merges mutations into the displayed ledger. After an
// add or remove the ledger is fetched again and the server's totals replace
// the snapshot.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
	"github.com/nutritrack/nutrition-core/internal/metrics"
	"github.com/nutritrack/nutrition-core/pkg/logger"
)

// Config configures a Coordinator.
type Config struct {
	Remote Remote
	// Sources overrides the resolution order. Defaults to DefaultSources.
	Sources []FoodSource
	Logger  *logger.Logger
	Metrics *metrics.Collector
}

// Coordinator owns the displayed ledger snapshot.
type Coordinator struct {
	remote  Remote
	sources []FoodSource
	log     *logger.Logger
	metrics *metrics.Collector

	mu     sync.RWMutex
	date   string
	ledger nutrition.DailyLedger
}

// New creates a coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Remote == nil {
		return nil, errors.New("ledger: Remote is required")
	}
	sources := cfg.Sources
	if len(sources) == 0 {
		sources = DefaultSources(cfg.Remote)
	}
	for i, s := range sources {
		if s == nil {
			return nil, fmt.Errorf("ledger: food source %d is nil", i)
		}
	}

	return &Coordinator{
		remote:  cfg.Remote,
		sources: append([]FoodSource(nil), sources...),
		log:     logger.OrDefault(cfg.Logger, "ledger"),
		metrics: cfg.Metrics,
		ledger:  nutrition.EmptyLedger(),
	}, nil
}

// =============================================================================
// Food Resolution
// =============================================================================

// ResolveFood returns the first source's answer for barcode. Personalized data
// replaces generic data wholesale. When every source fails the caller gets a
// single not-found error and the individual causes are only logged.
func (c *Coordinator) ResolveFood(ctx context.Context, barcode string) (nutrition.FoodInfo, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nutrition.FoodInfo{}, apierrors.Required("barcode")
	}

	for _, src := range c.sources {
		info, err := src.Lookup(ctx, barcode)
		if err == nil && info == nil {
			err = errors.New("empty response")
		}
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"barcode": barcode,
				"source":  src.Name(),
			}).WithError(err).Debug("Food source failed, trying next")
			continue
		}

		c.metrics.RecordFoodResolution(src.Name())
		c.log.WithFields(logrus.Fields{
			"barcode": barcode,
			"source":  src.Name(),
		}).Debug("Food resolved")
		return *info, nil
	}

	c.metrics.RecordFoodResolution("none")
	c.log.WithField("barcode", barcode).Info("Food not found in any source")
	return nutrition.FoodInfo{}, apierrors.NotFound("food", barcode)
}

// =============================================================================
// Ledger
// =============================================================================

// FetchLedger returns the server's ledger for userID on date and propagates
// any failure. An empty date lets the server choose the day.
func (c *Coordinator) FetchLedger(ctx context.Context, userID, date string) (nutrition.DailyLedger, error) {
	if strings.TrimSpace(userID) == "" {
		return nutrition.DailyLedger{}, apierrors.Required("userId")
	}
	if err := validateDate(date, true); err != nil {
		return nutrition.DailyLedger{}, err
	}

	l, err := c.remote.DailyLedger(ctx, userID, date)
	if err != nil {
		return nutrition.DailyLedger{}, err
	}
	if l == nil {
		return nutrition.EmptyLedger(), nil
	}
	return l.Normalize(), nil
}

// LoadLedger is the fail-soft FetchLedger: on any failure it returns the
// empty ledger. The result becomes the snapshot for date either way.
func (c *Coordinator) LoadLedger(ctx context.Context, userID, date string) nutrition.DailyLedger {
	l, err := c.FetchLedger(ctx, userID, date)
	if err != nil {
		c.metrics.RecordLedgerFallback()
		c.log.WithFields(logrus.Fields{
			"user_id": userID,
			"date":    date,
		}).WithError(err).Warn("Loading ledger failed; showing empty ledger")
		l = nutrition.EmptyLedger()
	}

	c.mu.Lock()
	c.date = date
	c.ledger = l
	c.mu.Unlock()

	return copyLedger(l)
}

// Snapshot returns the date and ledger last produced by LoadLedger.
func (c *Coordinator) Snapshot() (string, nutrition.DailyLedger) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.date, copyLedger(c.ledger)
}

// AddEntry logs quantity servings of barcode for date. The quantity is checked
// before anything is sent. The snapshot is not updated.
func (c *Coordinator) AddEntry(ctx context.Context, userID, barcode string, quantity float64, date string) (nutrition.FoodEntry, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return nutrition.FoodEntry{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return nutrition.FoodEntry{}, apierrors.Required("userId")
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nutrition.FoodEntry{}, apierrors.Required("barcode")
	}
	if err := validateDate(date, false); err != nil {
		return nutrition.FoodEntry{}, err
	}

	entry, err := c.remote.AddFoodEntry(ctx, userID, nutrition.AddFoodEntryRequest{
		FoodBarcode: barcode,
		Quantity:    quantity,
		Date:        date,
	})
	if err != nil {
		return nutrition.FoodEntry{}, err
	}
	if entry == nil {
		return nutrition.FoodEntry{}, apierrors.Internal("add-food-entry", errors.New("response is missing entry"))
	}

	c.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"barcode":  barcode,
		"quantity": quantity,
		"date":     date,
		"entry_id": entry.ID,
	}).Info("Food entry added")
	return *entry, nil
}

// RemoveEntry deletes entryID from the user's ledger. date only has to be a
// valid calendar date when given. The snapshot is not updated.
func (c *Coordinator) RemoveEntry(ctx context.Context, userID, entryID, date string) error {
	if strings.TrimSpace(userID) == "" {
		return apierrors.Required("userId")
	}
	if strings.TrimSpace(entryID) == "" {
		return apierrors.Required("entryId")
	}
	if err := validateDate(date, true); err != nil {
		return err
	}

	if err := c.remote.RemoveFoodEntry(ctx, userID, entryID); err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"entry_id": entryID,
		"date":     date,
	}).Info("Food entry removed")
	return nil
}

// AddEntryAndReload adds an entry and then reloads the ledger for date. The
// ledger is not reloaded when the add fails.
func (c *Coordinator) AddEntryAndReload(ctx context.Context, userID, barcode string, quantity float64, date string) (nutrition.FoodEntry, nutrition.DailyLedger, error) {
	entry, err := c.AddEntry(ctx, userID, barcode, quantity, date)
	if err != nil {
		return nutrition.FoodEntry{}, nutrition.DailyLedger{}, err
	}
	return entry, c.LoadLedger(ctx, userID, date), nil
}

// RemoveEntryAndReload removes an entry and then reloads the ledger for date.
func (c *Coordinator) RemoveEntryAndReload(ctx context.Context, userID, entryID, date string) (nutrition.DailyLedger, error) {
	if err := c.RemoveEntry(ctx, userID, entryID, date); err != nil {
		return nutrition.DailyLedger{}, err
	}
	return c.LoadLedger(ctx, userID, date), nil
}

func copyLedger(l nutrition.DailyLedger) nutrition.DailyLedger {
	l.Entries = append([]nutrition.FoodEntry{}, l.Entries...)
	return l
}
