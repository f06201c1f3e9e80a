package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gigboard/internal/dto"
	"github.com/noah-isme/gigboard/internal/middleware"
	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/internal/service"
	appErrors "github.com/noah-isme/gigboard/pkg/errors"
	"github.com/noah-isme/gigboard/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// Login godoc
// @Summary Sign in as admin
// @Description Forwards the credentials to the auth API and keeps the returned token in the session.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope{data=models.SessionInfo}
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	session := middleware.SessionFrom(c)
	if session == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "session unavailable"))
		return
	}

	creds := models.LoginCredentials{Username: req.Username, Password: req.Password}
	if err := h.service.Login(c.Request.Context(), session, creds, requestMeta(c)); err != nil {
		writeError(c, err)
		return
	}
	session, err := middleware.RotateSession(c)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "session rotation failed"))
		return
	}
	response.JSON(c, http.StatusOK, h.service.Session(c.Request.Context(), session), map[string]interface{}{"redirect": AdminEventsRedirect})
}

// Logout godoc
// @Summary Sign out
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope{data=models.SessionInfo}
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	session := middleware.SessionFrom(c)
	if session != nil {
		if err := h.service.Signout(c.Request.Context(), session, requestMeta(c)); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.JSON(c, http.StatusOK, models.SessionInfo{}, middleware.RedirectMeta(middleware.LoginRedirect))
}

// Session godoc
// @Summary Current admin session
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope{data=models.SessionInfo}
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Session(c.Request.Context(), middleware.SessionFrom(c)))
}
