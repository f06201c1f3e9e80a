package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gigboard/internal/client"
	"github.com/noah-isme/gigboard/internal/codec"
	"github.com/noah-isme/gigboard/internal/dto"
	"github.com/noah-isme/gigboard/internal/middleware"
	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/internal/service"
	"github.com/noah-isme/gigboard/pkg/clock"
	appErrors "github.com/noah-isme/gigboard/pkg/errors"
	"github.com/noah-isme/gigboard/pkg/response"
)

// AdminEventHandler serves the admin list, form and export endpoints. Every
// request works on its own view or form bound to the caller's session.
type AdminEventHandler struct {
	lists   *service.EventListService
	forms   *service.EventFormService
	exports *service.ExportService
	events  *client.EventClient
	codec   *codec.Codec
	clock   clock.Clock
}

// NewAdminEventHandler builds the admin event handler.
func NewAdminEventHandler(lists *service.EventListService, forms *service.EventFormService, exports *service.ExportService, events *client.EventClient, c *codec.Codec, clk clock.Clock) *AdminEventHandler {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &AdminEventHandler{lists: lists, forms: forms, exports: exports, events: events, codec: c, clock: clk}
}

func (h *AdminEventHandler) sessionClient(c *gin.Context) *client.EventClient {
	return h.events.WithTokens(middleware.SessionFrom(c))
}

// List godoc
// @Summary List events for administration
// @Tags Admin Events
// @Produce json
// @Param filter query string false "all, upcoming or past"
// @Success 200 {object} response.Envelope{data=dto.EventListResponse}
// @Failure 401 {object} response.Envelope
// @Router /admin/events [get]
func (h *AdminEventHandler) List(c *gin.Context) {
	filter, err := service.ParseFilter(c.Query("filter"))
	if err != nil {
		writeError(c, err)
		return
	}

	ec := h.sessionClient(c)
	view := h.lists.NewView(ec, ec)
	if err := view.Load(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	view.SetFilter(filter)

	visible := view.Visible()
	response.JSON(c, http.StatusOK, dto.EventListResponse{
		Filter: string(filter),
		Events: toCards(h.codec, visible),
	}, map[string]interface{}{"count": len(visible), "total": len(view.Events())})
}

// Export godoc
// @Summary Export the filtered event list
// @Tags Admin Events
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param filter query string false "all, upcoming or past"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/events/export [get]
func (h *AdminEventHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, err.Error()))
		return
	}
	format, err := service.ParseExportFormat(query.Format)
	if err != nil {
		writeError(c, err)
		return
	}
	filter, err := service.ParseFilter(query.Filter)
	if err != nil {
		writeError(c, err)
		return
	}

	ec := h.sessionClient(c)
	view := h.lists.NewView(ec, ec)
	if err := view.Load(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	view.SetFilter(filter)

	result, err := h.exports.Export(view.Visible(), filter, format, h.clock.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// Get godoc
// @Summary Load an event into the edit form
// @Tags Admin Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope{data=service.FormSnapshot}
// @Failure 404 {object} response.Envelope
// @Router /admin/events/{id} [get]
func (h *AdminEventHandler) Get(c *gin.Context) {
	form := h.forms.NewForm(h.sessionClient(c), models.EventID(c.Param("id")))
	if !h.load(c, form) {
		return
	}
	response.JSON(c, http.StatusOK, form.Snapshot())
}

// Create godoc
// @Summary Create an event from a display-format draft
// @Tags Admin Events
// @Accept json
// @Produce json
// @Param payload body dto.EventFormRequest true "Draft fields"
// @Success 201 {object} response.Envelope{data=service.FormSnapshot}
// @Failure 422 {object} response.Envelope
// @Router /admin/events [post]
func (h *AdminEventHandler) Create(c *gin.Context) {
	var req dto.EventFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "invalid event payload"))
		return
	}

	form := h.forms.NewForm(h.sessionClient(c), "")
	if err := form.SetDraft(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, err.Error()))
		return
	}
	h.submit(c, form, http.StatusCreated)
}

// Update godoc
// @Summary Update an event
// @Description Loads the event, overwrites the given draft fields and submits.
// @Tags Admin Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.EventFormRequest true "Draft fields"
// @Success 200 {object} response.Envelope{data=service.FormSnapshot}
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/events/{id} [put]
func (h *AdminEventHandler) Update(c *gin.Context) {
	var req dto.EventFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "invalid event payload"))
		return
	}

	form := h.forms.NewForm(h.sessionClient(c), models.EventID(c.Param("id")))
	if !h.load(c, form) {
		return
	}
	if err := form.SetDraft(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, err.Error()))
		return
	}
	h.submit(c, form, http.StatusOK)
}

// Delete godoc
// @Summary Delete an event
// @Tags Admin Events
// @Param id path string true "Event ID"
// @Param confirm query bool true "Must be true"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /admin/events/{id} [delete]
func (h *AdminEventHandler) Delete(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	ec := h.sessionClient(c)
	view := h.lists.NewView(ec, ec)
	if err := view.Delete(c.Request.Context(), models.EventID(c.Param("id")), confirmed); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// load runs the form load and writes the error response when it did not
// produce an editable draft.
func (h *AdminEventHandler) load(c *gin.Context, form *service.EventForm) bool {
	result, err := form.Load(c.Request.Context())
	switch result {
	case service.LoadLoaded:
		return true
	case service.LoadNotFound:
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "event not found"), middleware.RedirectMeta(AdminEventsRedirect))
	case service.LoadFailed:
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, form.Snapshot().LoadError))
	default:
		writeError(c, orInternal(err))
	}
	return false
}

func (h *AdminEventHandler) submit(c *gin.Context, form *service.EventForm, status int) {
	result, err := form.Submit(c.Request.Context())
	snap := form.Snapshot()

	switch result {
	case service.SubmitSaved:
		if snap.Saved != nil {
			c.Set(middleware.ContextAuditResourceKey, snap.Saved.ID.String())
		}
		response.JSON(c, status, snap)
	case service.SubmitInvalid:
		writeError(c, snap.Errors)
	case service.SubmitFailed:
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, snap.Notice.Message))
	default:
		writeError(c, orInternal(err))
	}
}

func orInternal(err error) error {
	if err == nil {
		return appErrors.ErrInternal
	}
	return err
}
