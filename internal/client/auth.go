package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/gigboard/internal/models"
)

// Login failure messages shown on the login page.
const (
	MsgCredentialsRequired = "Username and password are required."
	MsgLoginFailed         = "Login failed."
	MsgUnknownResponse     = "Unknown response."
	MsgConnectionError     = "Connection error."
)

// LoginError carries a message suitable for the login page. Status is 0
// when the API was not reached.
type LoginError struct {
	Message string
	Status  int
	Err     error
}

func (e *LoginError) Error() string {
	return e.Message
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// AuthClient calls /auth/login.
type AuthClient struct {
	t transport
}

// NewAuthClient builds an auth client on the shared transport options.
func NewAuthClient(opts Options) *AuthClient {
	return &AuthClient{t: newTransport(opts)}
}

// Login exchanges credentials for a token. Missing credentials are rejected
// without a network call.
func (c *AuthClient) Login(ctx context.Context, creds models.LoginCredentials) (string, error) {
	const op = "login"
	if creds.Username == "" || creds.Password == "" {
		return "", &LoginError{Message: MsgCredentialsRequired}
	}

	res, err := c.t.do(ctx, op, http.MethodPost, "/auth/login", "", creds)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.Status != 0 {
			return "", &LoginError{Message: MsgUnknownResponse, Status: upstream.Status, Err: err}
		}
		return "", &LoginError{Message: MsgConnectionError, Err: err}
	}

	if !isSuccess(res.status) {
		var backend models.BackendErrorMessage
		if err := json.Unmarshal(res.body, &backend); err != nil {
			return "", &LoginError{Message: MsgUnknownResponse, Status: res.status, Err: statusError(op, res)}
		}
		msg := strings.TrimSpace(backend.Message)
		if msg == "" {
			msg = MsgLoginFailed
		}
		c.t.logger.Info("login rejected", zap.Int("status", res.status), zap.String("message", msg))
		return "", &LoginError{Message: msg, Status: res.status, Err: statusError(op, res)}
	}

	var payload models.LoginResponse
	if err := json.Unmarshal(res.body, &payload); err != nil || payload.Token == "" {
		return "", &LoginError{Message: MsgLoginFailed, Status: res.status, Err: statusError(op, res)}
	}
	return payload.Token, nil
}
