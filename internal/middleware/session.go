package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/gigboard/internal/tokenstore"
	"github.com/noah-isme/gigboard/pkg/config"
)

// ContextSessionKey is the gin context key storing the *tokenstore.Session.
const ContextSessionKey = "adminSession"

// ContextUserKey is the gin context key storing the models.SessionInfo of an
// authenticated admin.
const ContextUserKey = "currentUser"

const contextSessionCookieKey = "adminSessionCookie"

type sessionCookie struct {
	store  tokenstore.Store
	cfg    config.SessionConfig
	name   string
	maxAge int
}

func (s sessionCookie) write(c *gin.Context, sid string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name, sid, s.maxAge, "/", "", s.cfg.CookieSecure, true)
}

// Session resolves the browser session from its cookie, issuing a new id
// when the cookie is missing or malformed.
func Session(store tokenstore.Store, cfg config.SessionConfig) gin.HandlerFunc {
	name := cfg.CookieName
	if name == "" {
		name = "gigboard_session"
	}
	cookie := sessionCookie{store: store, cfg: cfg, name: name, maxAge: int(cfg.TTL.Seconds())}

	return func(c *gin.Context) {
		sid, err := c.Cookie(name)
		if _, perr := uuid.Parse(sid); err != nil || perr != nil {
			sid = uuid.NewString()
			cookie.write(c, sid)
		}

		c.Set(contextSessionCookieKey, cookie)
		c.Set(ContextSessionKey, tokenstore.NewSession(store, sid, cfg.TTL))
		c.Next()
	}
}

// RotateSession moves the current session's token to a freshly issued id,
// clears the old slot and sends the new id as the session cookie. Call it
// after a privilege change such as login.
func RotateSession(c *gin.Context) (*tokenstore.Session, error) {
	current := SessionFrom(c)
	value, exists := c.Get(contextSessionCookieKey)
	cookie, ok := value.(sessionCookie)
	if current == nil || !exists || !ok {
		return nil, errors.New("rotate session: no session on request")
	}

	ctx := c.Request.Context()
	token, err := current.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("rotate session: read token: %w", err)
	}

	next := tokenstore.NewSession(cookie.store, uuid.NewString(), cookie.cfg.TTL)
	if token != "" {
		if err := next.Set(ctx, token); err != nil {
			return nil, fmt.Errorf("rotate session: store token: %w", err)
		}
	}
	if err := current.Clear(ctx); err != nil {
		return nil, fmt.Errorf("rotate session: clear old slot: %w", err)
	}

	cookie.write(c, next.ID())
	c.Set(ContextSessionKey, next)
	return next, nil
}

// SessionFrom returns the session attached by Session, or nil.
func SessionFrom(c *gin.Context) *tokenstore.Session {
	if c == nil {
		return nil
	}
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*tokenstore.Session)
	return session
}
