package stubapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
)

// Claims are the bearer token claims. Subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type contextKey string

const (
	userIDKey contextKey = "user_id"
	claimsKey contextKey = "claims"
)

// UserIDFromContext returns the authenticated user id set by the auth
// middleware.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// tokenIssuer signs and verifies HS256 tokens and remembers revoked ones.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

func newTokenIssuer(secret []byte, ttl time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret:  secret,
		ttl:     ttl,
		issuer:  "nutrition-stub",
		now:     now,
		revoked: make(map[string]time.Time),
	}
}

func (ti *tokenIssuer) issue(userID, email string) (string, error) {
	now := ti.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    ti.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

func (ti *tokenIssuer) verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, apierrors.InvalidToken(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, apierrors.InvalidToken(nil).WithDetails("reason", "invalid claims")
	}
	if ti.isRevoked(claims.ID) {
		return nil, apierrors.InvalidToken(errors.New("token revoked"))
	}
	return claims, nil
}

func (ti *tokenIssuer) revoke(claims *Claims) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	now := ti.now()
	for jti, exp := range ti.revoked {
		if now.After(exp) {
			delete(ti.revoked, jti)
		}
	}
	exp := now.Add(ti.ttl)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	ti.revoked[claims.ID] = exp
}

func (ti *tokenIssuer) isRevoked(jti string) bool {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	_, ok := ti.revoked[jti]
	return ok
}

// requireAuth rejects requests without a valid bearer token and stores the
// user id and claims in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.writeError(w, r, apierrors.Unauthorized("Missing Authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			s.writeError(w, r, apierrors.Unauthorized("Invalid Authorization header format"))
			return
		}

		claims, err := s.tokens.verify(strings.TrimSpace(parts[1]))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if _, ok := s.store.userByID(claims.Subject); !ok {
			s.writeError(w, r, apierrors.InvalidToken(nil).WithDetails("reason", "unknown user"))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func claimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}
