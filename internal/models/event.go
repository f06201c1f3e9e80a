package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EventID is the backend-assigned identifier. The API has emitted both
// numeric and string ids, so both decode into the same string form.
type EventID string

// UnmarshalJSON accepts `42`, `"42"` and `null`.
func (id *EventID) UnmarshalJSON(data []byte) error {
	s, err := unmarshalID(data)
	if err != nil {
		return fmt.Errorf("event id: %w", err)
	}
	*id = EventID(s)
	return nil
}

func unmarshalID(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// String returns the id as used in URL paths.
func (id EventID) String() string {
	return string(id)
}

// Event is the wire representation exchanged with the events API. Date
// fields hold ISO-8601 timestamps and are only interpreted by the codec.
type Event struct {
	ID          EventID   `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	EndDate     *string   `json:"endDate,omitempty"`
	StartTime   *string   `json:"startTime,omitempty"`
	Description *string   `json:"description"`
	Venue       *string   `json:"venue"`
	Location    *string   `json:"location"`
	ImageURL    *string   `json:"imageUrl"`
	TicketURL   *string   `json:"ticketUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EventInput is the create/update payload. Absent optional values are sent
// as null, never as empty strings.
type EventInput struct {
	Title       string  `json:"title"`
	Date        string  `json:"date"`
	EndDate     *string `json:"endDate"`
	StartTime   *string `json:"startTime"`
	Description *string `json:"description"`
	Venue       *string `json:"venue"`
	Location    *string `json:"location"`
	ImageURL    *string `json:"imageUrl"`
	TicketURL   *string `json:"ticketUrl"`
}

// EventDraft is the in-progress form state. Dates use DD.MM.YYYY, the start
// time HH:mm; an empty string means the field is absent.
type EventDraft struct {
	Title       string `json:"title" validate:"notblank"`
	Date        string `json:"date" validate:"required,event_date"`
	EndDate     string `json:"endDate" validate:"omitempty,event_date,not_before=Date"`
	StartTime   string `json:"startTime" validate:"omitempty,clock_time"`
	Description string `json:"description"`
	Venue       string `json:"venue" validate:"form_required"`
	Location    string `json:"location" validate:"form_required"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	TicketURL   string `json:"ticketUrl" validate:"omitempty,url"`
}

// Draft field names as they appear in JSON and in validation results.
const (
	FieldTitle       = "title"
	FieldDate        = "date"
	FieldEndDate     = "endDate"
	FieldStartTime   = "startTime"
	FieldDescription = "description"
	FieldVenue       = "venue"
	FieldLocation    = "location"
	FieldImageURL    = "imageUrl"
	FieldTicketURL   = "ticketUrl"
)

// Set overwrites one field by its JSON name.
func (d *EventDraft) Set(field, value string) error {
	switch field {
	case FieldTitle:
		d.Title = value
	case FieldDate:
		d.Date = value
	case FieldEndDate:
		d.EndDate = value
	case FieldStartTime:
		d.StartTime = value
	case FieldDescription:
		d.Description = value
	case FieldVenue:
		d.Venue = value
	case FieldLocation:
		d.Location = value
	case FieldImageURL:
		d.ImageURL = value
	case FieldTicketURL:
		d.TicketURL = value
	default:
		return fmt.Errorf("unknown event field %q", field)
	}
	return nil
}

// Fields returns the draft as a field name to value map.
func (d EventDraft) Fields() map[string]string {
	return map[string]string{
		FieldTitle:       d.Title,
		FieldDate:        d.Date,
		FieldEndDate:     d.EndDate,
		FieldStartTime:   d.StartTime,
		FieldDescription: d.Description,
		FieldVenue:       d.Venue,
		FieldLocation:    d.Location,
		FieldImageURL:    d.ImageURL,
		FieldTicketURL:   d.TicketURL,
	}
}
