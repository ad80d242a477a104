// Package account holds the identity shapes exchanged with the auth endpoints.
package account

import "strings"

// User is the authenticated identity returned by login and registration.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Valid reports whether u identifies a user.
func (u User) Valid() bool {
	return strings.TrimSpace(u.ID) != ""
}

// LoginRequest carries credentials for POST /auth/token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by POST /auth/token.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// RegisterRequest carries the new account for POST /users.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// RegisterResponse is the body returned by POST /users.
type RegisterResponse struct {
	User User `json:"user"`
}
