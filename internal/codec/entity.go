package codec

import (
	"errors"
	"strings"

	"github.com/noah-isme/gigboard/internal/models"
)

// EncodeDraft converts a display draft into the wire payload. Optional text
// fields that are blank become nil.
func (c *Codec) EncodeDraft(d models.EventDraft) (models.EventInput, error) {
	date, err := c.EncodeDate(d.Date)
	if err != nil {
		return models.EventInput{}, withField(err, models.FieldDate)
	}

	in := models.EventInput{
		Title:       strings.TrimSpace(d.Title),
		Date:        date,
		Description: optional(d.Description),
		Venue:       optional(d.Venue),
		Location:    optional(d.Location),
		ImageURL:    optional(d.ImageURL),
		TicketURL:   optional(d.TicketURL),
	}

	if v := optional(d.EndDate); v != nil {
		end, err := c.EncodeDate(*v)
		if err != nil {
			return models.EventInput{}, withField(err, models.FieldEndDate)
		}
		in.EndDate = &end
	}
	if v := optional(d.StartTime); v != nil {
		start, err := c.EncodeTime(*v)
		if err != nil {
			return models.EventInput{}, withField(err, models.FieldStartTime)
		}
		in.StartTime = &start
	}

	return in, nil
}

// DecodeEvent converts a fetched event into a display draft.
func (c *Codec) DecodeEvent(e models.Event) (models.EventDraft, error) {
	date, err := c.DecodeDate(e.Date)
	if err != nil {
		return models.EventDraft{}, withField(err, models.FieldDate)
	}

	d := models.EventDraft{
		Title:       e.Title,
		Date:        date,
		Description: deref(e.Description),
		Venue:       deref(e.Venue),
		Location:    deref(e.Location),
		ImageURL:    deref(e.ImageURL),
		TicketURL:   deref(e.TicketURL),
	}

	if v := optional(deref(e.EndDate)); v != nil {
		end, err := c.DecodeDate(*v)
		if err != nil {
			return models.EventDraft{}, withField(err, models.FieldEndDate)
		}
		d.EndDate = end
	}
	if v := optional(deref(e.StartTime)); v != nil {
		start, err := c.DecodeTime(*v)
		if err != nil {
			return models.EventDraft{}, withField(err, models.FieldStartTime)
		}
		d.StartTime = start
	}

	return d, nil
}

// DisplayRange renders the date line of a list card: one day, or
// "start – end" when the event spans several days. The start time is empty
// when the event has none.
func (c *Codec) DisplayRange(e models.Event) (string, string, error) {
	start, err := c.DecodeDate(e.Date)
	if err != nil {
		return "", "", withField(err, models.FieldDate)
	}
	dates := start
	if v := optional(deref(e.EndDate)); v != nil {
		end, err := c.DecodeDate(*v)
		if err != nil {
			return "", "", withField(err, models.FieldEndDate)
		}
		if end != start {
			dates = start + " – " + end
		}
	}

	var clock string
	if v := optional(deref(e.StartTime)); v != nil {
		clock, err = c.DecodeTime(*v)
		if err != nil {
			return "", "", withField(err, models.FieldStartTime)
		}
	}
	return dates, clock, nil
}

// NormalizeEvent rewrites blank optional fields of a fetched event to nil.
func NormalizeEvent(e models.Event) models.Event {
	e.EndDate = optional(deref(e.EndDate))
	e.StartTime = optional(deref(e.StartTime))
	e.Description = optional(deref(e.Description))
	e.Venue = optional(deref(e.Venue))
	e.Location = optional(deref(e.Location))
	e.ImageURL = optional(deref(e.ImageURL))
	e.TicketURL = optional(deref(e.TicketURL))
	return e
}

func withField(err error, field string) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		clone := *fe
		clone.Field = field
		return &clone
	}
	return err
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
