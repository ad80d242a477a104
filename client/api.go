package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nutritrack/nutrition-core/internal/domain/account"
	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
)

// Operation names used in errors, logs and metrics.
const (
	OpLogin           = "login"
	OpLogout          = "logout"
	OpRegister        = "register"
	OpFoodInfo        = "food-info"
	OpUserFoodInfo    = "user-food-info"
	OpDailyLedger     = "daily-ledger"
	OpAddFoodEntry    = "add-food-entry"
	OpRemoveFoodEntry = "remove-food-entry"
)

// =============================================================================
// Auth
// =============================================================================

// Login exchanges credentials for a bearer token. POST /auth/token.
func (c *Client) Login(ctx context.Context, req account.LoginRequest) (*account.LoginResponse, error) {
	var out account.LoginResponse
	if err := c.do(ctx, call{
		op:     OpLogin,
		method: http.MethodPost,
		path:   "/auth/token",
		body:   req,
		out:    &out,
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token. DELETE /auth/token.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{
		op:     OpLogout,
		method: http.MethodDelete,
		path:   "/auth/token",
	})
}

// Register creates an account. It does not sign the user in. POST /users.
func (c *Client) Register(ctx context.Context, req account.RegisterRequest) (*account.User, error) {
	var out account.RegisterResponse
	if err := c.do(ctx, call{
		op:     OpRegister,
		method: http.MethodPost,
		path:   "/users",
		body:   req,
		out:    &out,
	}); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// =============================================================================
// Food Info
// =============================================================================

// FoodInfo returns the generic record for barcode. GET /food-info/{barcode}.
func (c *Client) FoodInfo(ctx context.Context, barcode string) (*nutrition.FoodInfo, error) {
	seg, err := segment("barcode", barcode)
	if err != nil {
		return nil, err
	}
	var out nutrition.FoodInfo
	if err := c.do(ctx, call{
		op:     OpFoodInfo,
		method: http.MethodGet,
		path:   "/food-info/" + seg,
		out:    &out,
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserFoodInfo returns the record for barcode personalized to the signed-in
// user. GET /users/food-info/{barcode}.
func (c *Client) UserFoodInfo(ctx context.Context, barcode string) (*nutrition.FoodInfo, error) {
	seg, err := segment("barcode", barcode)
	if err != nil {
		return nil, err
	}
	var out nutrition.FoodInfo
	if err := c.do(ctx, call{
		op:     OpUserFoodInfo,
		method: http.MethodGet,
		path:   "/users/food-info/" + seg,
		out:    &out,
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// Food Entries
// =============================================================================

// DailyLedger returns the ledger for userID on date (YYYY-MM-DD). An empty date
// lets the server pick its current day. GET /users/{userId}/food-entries.
func (c *Client) DailyLedger(ctx context.Context, userID, date string) (*nutrition.DailyLedger, error) {
	seg, err := segment("userId", userID)
	if err != nil {
		return nil, err
	}
	var query url.Values
	if date != "" {
		query = url.Values{"date": []string{date}}
	}
	var out nutrition.DailyLedger
	if err := c.do(ctx, call{
		op:     OpDailyLedger,
		method: http.MethodGet,
		path:   "/users/" + seg + "/food-entries",
		query:  query,
		out:    &out,
	}); err != nil {
		return nil, err
	}
	out = out.Normalize()
	return &out, nil
}

// AddFoodEntry logs a food for userID. POST /users/{userId}/food-entries.
func (c *Client) AddFoodEntry(ctx context.Context, userID string, req nutrition.AddFoodEntryRequest) (*nutrition.FoodEntry, error) {
	seg, err := segment("userId", userID)
	if err != nil {
		return nil, err
	}
	var out nutrition.FoodEntry
	if err := c.do(ctx, call{
		op:     OpAddFoodEntry,
		method: http.MethodPost,
		path:   "/users/" + seg + "/food-entries",
		body:   req,
		out:    &out,
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFoodEntry deletes an entry. DELETE /users/{userId}/food-entries/{entryId}.
func (c *Client) RemoveFoodEntry(ctx context.Context, userID, entryID string) error {
	userSeg, err := segment("userId", userID)
	if err != nil {
		return err
	}
	entrySeg, err := segment("entryId", entryID)
	if err != nil {
		return err
	}
	return c.do(ctx, call{
		op:     OpRemoveFoodEntry,
		method: http.MethodDelete,
		path:   "/users/" + userSeg + "/food-entries/" + entrySeg,
	})
}
