package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gigboard/internal/client"
	"github.com/noah-isme/gigboard/internal/middleware"
	"github.com/noah-isme/gigboard/internal/service"
	"github.com/noah-isme/gigboard/internal/validation"
	appErrors "github.com/noah-isme/gigboard/pkg/errors"
	"github.com/noah-isme/gigboard/pkg/response"
)

// AdminEventsRedirect is where a missing event sends the admin.
const AdminEventsRedirect = "/admin/events"

// writeError maps client and service errors onto the response envelope.
func writeError(c *gin.Context, err error) {
	var (
		loginErr    *client.LoginError
		upstreamErr *client.UpstreamError
		fields      validation.Errors
	)

	switch {
	case errors.Is(err, client.ErrUnauthenticated):
		if session := middleware.SessionFrom(c); session != nil {
			_ = session.Clear(c.Request.Context())
		}
		response.Error(c, appErrors.ErrUnauthenticated, middleware.RedirectMeta(middleware.LoginRedirect))
	case errors.As(err, &loginErr):
		response.Error(c, loginError(loginErr))
	case errors.As(err, &fields):
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message),
			map[string]interface{}{"fields": fields})
	case errors.Is(err, service.ErrDeleteNotConfirmed):
		response.Error(c, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, err.Error()))
	case errors.Is(err, service.ErrUnknownFilter), errors.Is(err, service.ErrUnknownExportFormat):
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, err.Error()))
	case errors.Is(err, service.ErrSubmitInFlight), errors.Is(err, service.ErrFormNotEditable):
		response.Error(c, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, err.Error()))
	case errors.As(err, &upstreamErr):
		if upstreamErr.Status == 0 {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrUpstreamConnection.Code, appErrors.ErrUpstreamConnection.Status, err.Error()))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, err.Error()))
	default:
		response.Error(c, err)
	}
}

func loginError(err *client.LoginError) *appErrors.Error {
	switch {
	case err.Message == client.MsgCredentialsRequired:
		return appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, err.Message)
	case err.Status == 0:
		return appErrors.Wrap(err, appErrors.ErrUpstreamConnection.Code, appErrors.ErrUpstreamConnection.Status, err.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInvalidCredentials.Code, appErrors.ErrInvalidCredentials.Status, err.Message)
}
