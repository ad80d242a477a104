package ledger

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
)

// ParseQuantity converts user input into a serving multiplier.
func ParseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, apierrors.Required("quantity")
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apierrors.Validation("quantity", "must be a number")
	}
	if err := ValidateQuantity(q); err != nil {
		return 0, err
	}
	return q, nil
}

// ValidateQuantity rejects NaN, infinities, zero and negative values.
func ValidateQuantity(q float64) error {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return apierrors.Validation("quantity", "must be a finite number")
	}
	if q <= 0 {
		return apierrors.Validation("quantity", "must be greater than zero")
	}
	return nil
}

// Today returns now's calendar date in now's location.
func Today(now time.Time) string {
	return nutrition.FormatDate(now)
}

func validateDate(date string, optional bool) error {
	if date == "" && optional {
		return nil
	}
	if date == "" {
		return apierrors.Required("date")
	}
	if !nutrition.ValidDate(date) {
		return apierrors.Validation("date", "must be YYYY-MM-DD")
	}
	return nil
}
