package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gigboard/internal/client"
	"github.com/noah-isme/gigboard/internal/codec"
	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/pkg/clock"
)

// Filter selects which events a list view shows.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterUpcoming Filter = "upcoming"
	FilterPast     Filter = "past"
)

// List view messages.
const (
	MsgListLoadFailed   = "Error loading events."
	MsgDeleteFailedFmt  = "Error deleting event: "
	MsgDeleteNeedsOkFmt = "Deleting event %s requires confirmation."
)

var (
	// ErrUnknownFilter is returned by ParseFilter.
	ErrUnknownFilter = errors.New("unknown event filter")
	// ErrDeleteNotConfirmed rejects a delete without explicit confirmation.
	ErrDeleteNotConfirmed = errors.New("event delete not confirmed")
)

// ParseFilter reads a filter name. An empty name means FilterAll.
func ParseFilter(name string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterUpcoming, FilterPast:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, name)
}

// FilterEvents returns the events matching filter, keeping their order.
// Events compare on the calendar day of their start date. Upcoming events compare on or after the viewer's today; past
// events compare before it. Events whose dates cannot be read appear only
// under FilterAll.
func FilterEvents(c *codec.Codec, events []models.Event, filter Filter, now time.Time) []models.Event {
	out := make([]models.Event, 0, len(events))
	if filter == FilterAll || filter == "" {
		return append(out, events...)
	}

	today := c.Today(now)
	for _, e := range events {
		day, err := c.CalendarDay(e.Date)
		if err != nil {
			continue
		}
		upcoming := !day.Before(today)
		if (filter == FilterUpcoming) == upcoming {
			out = append(out, e)
		}
	}
	return out
}

type eventLister interface {
	List(ctx context.Context) ([]models.Event, error)
}

type eventDeleter interface {
	Delete(ctx context.Context, id models.EventID) (int, error)
}

// EventListService builds list views sharing one codec and clock.
type EventListService struct {
	codec  *codec.Codec
	clock  clock.Clock
	logger *zap.Logger
}

// NewEventListService constructs an EventListService. A nil clock uses the
// system time.
func NewEventListService(c *codec.Codec, clk clock.Clock, logger *zap.Logger) *EventListService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventListService{codec: c, clock: clk, logger: logger}
}

// NewView returns an empty list view. deleter may be nil for the public
// list.
func (s *EventListService) NewView(lister eventLister, deleter eventDeleter) *EventListView {
	return &EventListView{svc: s, lister: lister, deleter: deleter, filter: FilterAll}
}

// EventListView holds the events fetched for one view instance. Nothing is
// shared between views.
type EventListView struct {
	svc     *EventListService
	lister  eventLister
	deleter eventDeleter

	mu     sync.Mutex
	events []models.Event
	filter Filter
	errMsg string
}

// Load fetches the list, replacing whatever the view held.
func (v *EventListView) Load(ctx context.Context) error {
	events, err := v.lister.List(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		if !errors.Is(err, client.ErrUnauthenticated) {
			v.errMsg = MsgListLoadFailed
		}
		v.svc.logger.Warn("failed to load events", zap.Error(err))
		return err
	}
	normalized := make([]models.Event, len(events))
	for i, e := range events {
		normalized[i] = codec.NormalizeEvent(e)
	}
	v.events = normalized
	v.errMsg = ""
	return nil
}

// SetFilter changes the active filter.
func (v *EventListView) SetFilter(f Filter) {
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
}

// Filter returns the active filter.
func (v *EventListView) Filter() Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Events returns every loaded event.
func (v *EventListView) Events() []models.Event {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Event(nil), v.events...)
}

// Visible returns the events matching the active filter as of now.
func (v *EventListView) Visible() []models.Event {
	v.mu.Lock()
	events, filter := v.events, v.filter
	v.mu.Unlock()
	return FilterEvents(v.svc.codec, events, filter, v.svc.clock.Now())
}

// Error returns the message to show instead of the list, if any.
func (v *EventListView) Error() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errMsg
}

// Delete removes an event after explicit confirmation. On success the event
// is dropped from the view without reloading.
func (v *EventListView) Delete(ctx context.Context, id models.EventID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("%w: "+MsgDeleteNeedsOkFmt, ErrDeleteNotConfirmed, id)
	}
	if v.deleter == nil {
		return client.ErrUnauthenticated
	}

	status, err := v.deleter.Delete(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		if !errors.Is(err, client.ErrUnauthenticated) {
			v.errMsg = MsgDeleteFailedFmt + err.Error()
		}
		v.svc.logger.Warn("failed to delete event", zap.String("event_id", id.String()), zap.Error(err))
		return err
	}

	kept := v.events[:0:0]
	for _, e := range v.events {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	v.events = kept
	v.svc.logger.Info("event deleted", zap.String("event_id", id.String()), zap.Int("status", status))
	return nil
}
