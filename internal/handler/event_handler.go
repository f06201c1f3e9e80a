package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gigboard/internal/client"
	"github.com/noah-isme/gigboard/internal/codec"
	"github.com/noah-isme/gigboard/internal/dto"
	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/internal/service"
	"github.com/noah-isme/gigboard/pkg/response"
)

// EventHandler serves the public event list.
type EventHandler struct {
	lists  *service.EventListService
	events *client.EventClient
	codec  *codec.Codec
}

// NewEventHandler builds the public event handler.
func NewEventHandler(lists *service.EventListService, events *client.EventClient, c *codec.Codec) *EventHandler {
	return &EventHandler{lists: lists, events: events, codec: c}
}

// List godoc
// @Summary List events
// @Description Public event list rendered as display cards.
// @Tags Events
// @Produce json
// @Param filter query string false "all, upcoming or past"
// @Success 200 {object} response.Envelope{data=dto.EventListResponse}
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	filter, err := service.ParseFilter(c.Query("filter"))
	if err != nil {
		writeError(c, err)
		return
	}

	view := h.lists.NewView(h.events, nil)
	if err := view.Load(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	view.SetFilter(filter)

	visible := view.Visible()
	response.JSON(c, http.StatusOK, dto.EventListResponse{
		Filter: string(filter),
		Events: toCards(h.codec, visible),
	}, map[string]interface{}{"count": len(visible)})
}

// toCards renders events for display. An event whose dates cannot be read
// shows its raw date text.
func toCards(c *codec.Codec, events []models.Event) []dto.EventCard {
	cards := make([]dto.EventCard, 0, len(events))
	for _, e := range events {
		date, startTime, err := c.DisplayRange(e)
		if err != nil {
			date = e.Date
		}
		cards = append(cards, dto.EventCard{
			ID:          e.ID.String(),
			Title:       e.Title,
			Date:        date,
			StartTime:   startTime,
			Description: e.Description,
			Venue:       e.Venue,
			Location:    e.Location,
			ImageURL:    e.ImageURL,
			TicketURL:   e.TicketURL,
		})
	}
	return cards
}
