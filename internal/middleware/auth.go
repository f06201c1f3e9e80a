package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/internal/service"
	appErrors "github.com/noah-isme/gigboard/pkg/errors"
	"github.com/noah-isme/gigboard/pkg/response"
)

// LoginRedirect is where unauthenticated admins are sent.
const LoginRedirect = "/admin/login"

// RequireAuth blocks admin routes until the session holds a token. The
// token itself is validated by the events API on each call.
func RequireAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFrom(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthenticated, RedirectMeta(LoginRedirect))
			c.Abort()
			return
		}

		info := authService.Session(c.Request.Context(), session)
		if !info.Authenticated {
			response.Error(c, appErrors.ErrUnauthenticated, RedirectMeta(LoginRedirect))
			c.Abort()
			return
		}

		c.Set(ContextUserKey, info)
		c.Next()
	}
}

// UserFrom returns the session info stored by RequireAuth.
func UserFrom(c *gin.Context) (models.SessionInfo, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return models.SessionInfo{}, false
	}
	info, ok := value.(models.SessionInfo)
	return info, ok
}

// RedirectMeta builds the response meta telling the client where to go next.
func RedirectMeta(path string) map[string]interface{} {
	return map[string]interface{}{"redirect": path}
}
