package models

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// LoginCredentials is forwarded unchanged to the auth API.
type LoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the auth API's success body.
type LoginResponse struct {
	Token string `json:"token"`
}

// BackendErrorMessage is the error body returned by the auth and events API.
type BackendErrorMessage struct {
	Message string `json:"message"`
}

// TokenPayload holds the claims the gateway reads from an admin token. The
// signature is verified by the backend, not here.
type TokenPayload struct {
	UserID UserID `json:"userId"`
	jwt.RegisteredClaims
}

// UserID is the admin id carried in the token. Like EventID it may arrive
// as a number or a string.
type UserID string

// UnmarshalJSON accepts `7`, `"7"` and `null`.
func (id *UserID) UnmarshalJSON(data []byte) error {
	s, err := unmarshalID(data)
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*id = UserID(s)
	return nil
}

// SessionInfo describes the current admin session.
type SessionInfo struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
}
