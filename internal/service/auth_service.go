package service

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/gigboard/internal/models"
)

type loginClient interface {
	Login(ctx context.Context, creds models.LoginCredentials) (string, error)
}

// TokenSlot is the per-session token storage the auth flow writes to.
type TokenSlot interface {
	Token(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// RequestMeta identifies the caller for audit records.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuthService handles admin login and the session token.
type AuthService struct {
	client loginClient
	audit  *AuditService
	logger *zap.Logger
	parser *jwt.Parser
}

// NewAuthService constructs an AuthService. audit may be nil.
func NewAuthService(client loginClient, audit *AuditService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{client: client, audit: audit, logger: logger, parser: jwt.NewParser()}
}

// Login forwards credentials to the auth API and stores the returned token
// in slot. Failures are *client.LoginError values carrying the message for
// the login page.
func (s *AuthService) Login(ctx context.Context, slot TokenSlot, creds models.LoginCredentials, meta RequestMeta) error {
	token, err := s.client.Login(ctx, creds)
	if err != nil {
		return err
	}
	if err := slot.Set(ctx, token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	s.logger.Info("admin logged in", zap.String("username", creds.Username))

	var userID string
	if claims, err := s.Claims(token); err == nil {
		userID = string(claims.UserID)
	}
	s.audit.Record(ctx, AuditEntry{
		UserID:    userID,
		Action:    models.AuditActionLogin,
		Resource:  "auth",
		Values:    map[string]string{"status": "success"},
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// Signout drops the session token.
func (s *AuthService) Signout(ctx context.Context, slot TokenSlot, meta RequestMeta) error {
	info := s.Session(ctx, slot)
	if err := slot.Clear(ctx); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	if info.Authenticated {
		s.audit.Record(ctx, AuditEntry{
			UserID:    info.UserID,
			Action:    models.AuditActionLogout,
			Resource:  "auth",
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
	}
	return nil
}

// IsAuthenticated reports whether slot holds a token. Expiry is not
// checked; the events API answers 401 for stale tokens.
func (s *AuthService) IsAuthenticated(ctx context.Context, slot TokenSlot) (bool, error) {
	token, err := slot.Token(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// Session describes the slot's state. Store errors count as signed out.
func (s *AuthService) Session(ctx context.Context, slot TokenSlot) models.SessionInfo {
	token, err := slot.Token(ctx)
	if err != nil {
		s.logger.Warn("failed to read session token", zap.Error(err))
		return models.SessionInfo{}
	}
	if token == "" {
		return models.SessionInfo{}
	}
	info := models.SessionInfo{Authenticated: true}
	if claims, err := s.Claims(token); err == nil {
		info.UserID = string(claims.UserID)
	}
	return info
}

// Claims reads the token payload without verifying its signature. The
// result is used for display and audit attribution only.
func (s *AuthService) Claims(token string) (*models.TokenPayload, error) {
	claims := &models.TokenPayload{}
	if _, _, err := s.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token payload: %w", err)
	}
	return claims, nil
}
