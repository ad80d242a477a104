package stubapi

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/nutritrack/nutrition-core/internal/domain/account"
	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
)

const maxRequestBody = 1 << 20

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return apierrors.BadRequest("Request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return apierrors.BadRequest("Invalid JSON body").WithDetails("cause", err.Error())
	}
	return nil
}

// pathVar returns the decoded route variable. The router matches on the
// encoded path so barcodes may contain escaped slashes.
func pathVar(r *http.Request, name string) string {
	raw := mux.Vars(r)[name]
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// =============================================================================
// Auth Handlers
// =============================================================================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req account.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.writeError(w, r, apierrors.BadRequest("Email and password are required"))
		return
	}

	rec, ok := s.store.userByEmail(req.Email)
	if !ok || bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(req.Password)) != nil {
		s.writeError(w, r, apierrors.Unauthorized("Invalid email or password"))
		return
	}

	token, err := s.tokens.issue(rec.user.ID, rec.user.Email)
	if err != nil {
		s.writeError(w, r, apierrors.InternalServer(err))
		return
	}

	s.log.WithField("user_id", rec.user.ID).Info("User logged in")
	writeJSON(w, http.StatusOK, account.LoginResponse{Token: token, User: rec.user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims := claimsFromContext(r.Context()); claims != nil {
		s.tokens.revoke(claims)
		s.log.WithField("user_id", claims.Subject).Info("Token revoked")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.writeError(w, r, apierrors.BadRequest("Email and password are required"))
		return
	}
	if !strings.Contains(req.Email, "@") {
		s.writeError(w, r, apierrors.BadRequest("Email is invalid").WithDetails("field", "email"))
		return
	}

	user, err := s.createUser(req.Email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log.WithField("user_id", user.ID).Info("User registered")
	writeJSON(w, http.StatusCreated, account.RegisterResponse{User: user})
}

// =============================================================================
// Food Handlers
// =============================================================================

func (s *Server) handleFoodInfo(w http.ResponseWriter, r *http.Request) {
	barcode := pathVar(r, "barcode")
	food, ok := s.store.food(barcode)
	if !ok {
		s.writeError(w, r, apierrors.ResourceNotFound("food", barcode))
		return
	}
	writeJSON(w, http.StatusOK, food)
}

func (s *Server) handleUserFoodInfo(w http.ResponseWriter, r *http.Request) {
	barcode := pathVar(r, "barcode")
	food, ok := s.store.override(UserIDFromContext(r.Context()), barcode)
	if !ok {
		s.writeError(w, r, apierrors.ResourceNotFound("personalized food", barcode))
		return
	}
	writeJSON(w, http.StatusOK, food)
}

// =============================================================================
// Entry Handlers
// =============================================================================

// pathUser returns the {userId} path variable after checking it belongs to
// the caller.
func (s *Server) pathUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := pathVar(r, "userId")
	if userID != UserIDFromContext(r.Context()) {
		s.writeError(w, r, apierrors.Forbidden("Cannot access another user's entries"))
		return "", false
	}
	return userID, true
}

func (s *Server) handleDailyLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathUser(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = nutrition.FormatDate(s.now())
	}
	if !nutrition.ValidDate(date) {
		s.writeError(w, r, apierrors.BadRequest("Date must be YYYY-MM-DD").WithDetails("date", date))
		return
	}

	writeJSON(w, http.StatusOK, s.store.ledger(userID, date))
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathUser(w, r)
	if !ok {
		return
	}

	var req nutrition.AddFoodEntryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.FoodBarcode == "" {
		s.writeError(w, r, apierrors.BadRequest("foodBarcode is required"))
		return
	}
	if math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) || req.Quantity <= 0 {
		s.writeError(w, r, apierrors.BadRequest("quantity must be a positive number"))
		return
	}
	if req.Date == "" {
		req.Date = nutrition.FormatDate(s.now())
	}
	if !nutrition.ValidDate(req.Date) {
		s.writeError(w, r, apierrors.BadRequest("Date must be YYYY-MM-DD").WithDetails("date", req.Date))
		return
	}

	food, ok := s.store.foodFor(userID, req.FoodBarcode)
	if !ok {
		s.writeError(w, r, apierrors.ResourceNotFound("food", req.FoodBarcode))
		return
	}

	entry := s.store.addEntry(userID, food, req.Quantity, req.Date)
	s.log.WithFields(map[string]interface{}{
		"user_id":  userID,
		"entry_id": entry.ID,
		"barcode":  entry.FoodBarcode,
	}).Debug("Entry added")
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathUser(w, r)
	if !ok {
		return
	}

	entryID := pathVar(r, "entryId")
	if !s.store.removeEntry(userID, entryID) {
		s.writeError(w, r, apierrors.ResourceNotFound("entry", entryID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
