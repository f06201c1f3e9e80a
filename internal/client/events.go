package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/gigboard/internal/models"
)

// EventClient performs CRUD calls against /events.
type EventClient struct {
	t      transport
	tokens TokenSource
}

// NewEventClient builds a client without a token source. Use WithTokens to
// bind one for authenticated calls.
func NewEventClient(opts Options) *EventClient {
	return &EventClient{t: newTransport(opts)}
}

// WithTokens returns a copy of the client bound to ts.
func (c *EventClient) WithTokens(ts TokenSource) *EventClient {
	clone := *c
	clone.tokens = ts
	return &clone
}

// List fetches all events. It is a public call and sends no token. An empty
// response yields an empty, non-nil slice.
func (c *EventClient) List(ctx context.Context) ([]models.Event, error) {
	const op = "list events"
	res, err := c.t.do(ctx, op, http.MethodGet, "/events", "", nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(res.status) {
		return nil, statusError(op, res)
	}
	if isEmptyList(res) {
		return []models.Event{}, nil
	}

	trimmed := bytes.TrimSpace(res.body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &UpstreamError{Op: op, Status: res.status, Body: string(trimmed), Err: errors.New("invalid data format received from server")}
	}
	var events []models.Event
	if err := json.Unmarshal(trimmed, &events); err != nil {
		return nil, &UpstreamError{Op: op, Status: res.status, Body: string(trimmed), Err: fmt.Errorf("decode events: %w", err)}
	}
	if events == nil {
		events = []models.Event{}
	}
	c.t.logger.Debug("fetched events", zap.Int("count", len(events)))
	return events, nil
}

// Get fetches one event. found is false when the API answers 404.
func (c *EventClient) Get(ctx context.Context, id models.EventID) (models.Event, bool, error) {
	const op = "get event"
	res, err := c.authorized(ctx, op, http.MethodGet, eventPath(id), nil)
	if err != nil {
		return models.Event{}, false, err
	}
	if res.status == http.StatusNotFound {
		return models.Event{}, false, nil
	}
	if !isSuccess(res.status) {
		return models.Event{}, false, statusError(op, res)
	}
	event, err := decodeEvent(op, res)
	if err != nil {
		return models.Event{}, false, err
	}
	return event, true, nil
}

// Create posts a new event and returns the stored entity.
func (c *EventClient) Create(ctx context.Context, in models.EventInput) (models.Event, error) {
	const op = "create event"
	res, err := c.authorized(ctx, op, http.MethodPost, "/events", in)
	if err != nil {
		return models.Event{}, err
	}
	if !isSuccess(res.status) {
		return models.Event{}, statusError(op, res)
	}
	return decodeEvent(op, res)
}

// Update replaces the event with id and returns the stored entity.
func (c *EventClient) Update(ctx context.Context, id models.EventID, in models.EventInput) (models.Event, error) {
	const op = "update event"
	res, err := c.authorized(ctx, op, http.MethodPut, eventPath(id), in)
	if err != nil {
		return models.Event{}, err
	}
	if !isSuccess(res.status) {
		return models.Event{}, statusError(op, res)
	}
	return decodeEvent(op, res)
}

// Delete removes the event with id. Any 2xx counts as success; the status
// is returned for logging.
func (c *EventClient) Delete(ctx context.Context, id models.EventID) (int, error) {
	const op = "delete event"
	res, err := c.authorized(ctx, op, http.MethodDelete, eventPath(id), nil)
	if err != nil {
		return 0, err
	}
	if !isSuccess(res.status) {
		return 0, statusError(op, res)
	}
	return res.status, nil
}

func (c *EventClient) authorized(ctx context.Context, op, method, path string, payload interface{}) (*result, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.t.do(ctx, op, method, path, token, payload)
	if err != nil {
		return nil, err
	}
	if res.status == http.StatusUnauthorized {
		c.t.logger.Warn("upstream rejected token", zap.String("op", op))
		if c.tokens != nil {
			if err := c.tokens.Clear(ctx); err != nil {
				c.t.logger.Warn("failed to clear session token", zap.Error(err))
			}
		}
		return nil, ErrUnauthenticated
	}
	return res, nil
}

func (c *EventClient) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", ErrUnauthenticated
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("read session token: %w", err)
	}
	if token == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}

func eventPath(id models.EventID) string {
	return "/events/" + url.PathEscape(id.String())
}

func isEmptyList(res *result) bool {
	if res.status == http.StatusNoContent {
		return true
	}
	if res.header.Get("Content-Length") == "0" && !strings.Contains(res.header.Get("Content-Type"), "application/json") {
		return true
	}
	return len(bytes.TrimSpace(res.body)) == 0
}

func decodeEvent(op string, res *result) (models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(res.body, &event); err != nil {
		return models.Event{}, &UpstreamError{Op: op, Status: res.status, Body: strings.TrimSpace(string(res.body)), Err: fmt.Errorf("decode event: %w", err)}
	}
	return event, nil
}
