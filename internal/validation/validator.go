// Package validation checks event drafts before they are encoded and sent to
// the events API.
package validation

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/gigboard/internal/codec"
	"github.com/noah-isme/gigboard/internal/models"
)

// Mode selects which rule set applies.
type Mode int

const (
	// AdminForm validates display formats and requires venue and address.
	AdminForm Mode = iota
	// Wire validates ISO timestamps; venue and address are optional.
	Wire
)

func (m Mode) String() string {
	if m == Wire {
		return "wire"
	}
	return "admin-form"
}

// Validation messages keyed by field.
const (
	MsgTitleRequired    = "Title is required."
	MsgDateRequired     = "Start date is required."
	MsgDateInvalid      = "Start date is invalid."
	MsgEndDateInvalid   = "Invalid end date."
	MsgStartTimeInvalid = "Invalid start time."
	MsgVenueRequired    = "Venue is required."
	MsgLocationRequired = "Address is required."
	MsgURLInvalid       = "Invalid URL."
)

// Errors maps a JSON field name to its message. Every violated field is
// present.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil when there are no violations.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

type modeKey struct{}

// EventValidator validates event drafts in either mode.
type EventValidator struct {
	validate *validator.Validate
	codec    *codec.Codec
}

// NewEventValidator registers the event rules on validate. A nil validate
// creates a fresh instance; a nil codec uses the local zone.
//
// The instance is configured to report json field names, which applies to
// every struct it validates afterwards. Pass an instance reserved for
// events, or nil.
func NewEventValidator(validate *validator.Validate, c *codec.Codec) *EventValidator {
	if validate == nil {
		validate = validator.New()
	}
	if c == nil {
		c = codec.New(nil)
	}
	v := &EventValidator{validate: validate, codec: c}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = validate.RegisterValidationCtx("notblank", v.notBlank)
	_ = validate.RegisterValidationCtx("event_date", v.eventDate)
	_ = validate.RegisterValidationCtx("not_before", v.notBefore)
	_ = validate.RegisterValidationCtx("clock_time", v.clockTime)
	_ = validate.RegisterValidationCtx("form_required", v.formRequired)
	return v
}

// ValidateDraft checks a display draft in the given mode and returns every
// violation. The result is empty when the draft is valid.
func (v *EventValidator) ValidateDraft(ctx context.Context, draft models.EventDraft, mode Mode) Errors {
	draft = trimDraft(draft)
	ctx = context.WithValue(ctx, modeKey{}, mode)

	out := Errors{}
	err := v.validate.StructCtx(ctx, draft)
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out[models.FieldTitle] = err.Error()
		return out
	}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(field, fe.Tag())
	}
	return out
}

// ValidateInput checks a wire payload in Wire mode.
func (v *EventValidator) ValidateInput(ctx context.Context, in models.EventInput) Errors {
	return v.ValidateDraft(ctx, models.EventDraft{
		Title:       in.Title,
		Date:        in.Date,
		EndDate:     value(in.EndDate),
		StartTime:   value(in.StartTime),
		Description: value(in.Description),
		Venue:       value(in.Venue),
		Location:    value(in.Location),
		ImageURL:    value(in.ImageURL),
		TicketURL:   value(in.TicketURL),
	}, Wire)
}

// MessageFor returns the message shown for a malformed value in field.
func MessageFor(field string) string {
	return message(field, "")
}

func message(field, tag string) string {
	switch field {
	case models.FieldTitle:
		return MsgTitleRequired
	case models.FieldDate:
		if tag == "required" {
			return MsgDateRequired
		}
		return MsgDateInvalid
	case models.FieldEndDate:
		return MsgEndDateInvalid
	case models.FieldStartTime:
		return MsgStartTimeInvalid
	case models.FieldVenue:
		return MsgVenueRequired
	case models.FieldLocation:
		return MsgLocationRequired
	case models.FieldImageURL, models.FieldTicketURL:
		return MsgURLInvalid
	}
	return "Invalid value."
}

func modeFrom(ctx context.Context) Mode {
	if m, ok := ctx.Value(modeKey{}).(Mode); ok {
		return m
	}
	return AdminForm
}

func (v *EventValidator) notBlank(_ context.Context, fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func (v *EventValidator) eventDate(ctx context.Context, fl validator.FieldLevel) bool {
	_, err := v.day(ctx, fl.Field().String())
	return err == nil
}

// notBefore passes when either side is unparsable; those values are
// reported by their own rules.
func (v *EventValidator) notBefore(ctx context.Context, fl validator.FieldLevel) bool {
	end, err := v.day(ctx, fl.Field().String())
	if err != nil {
		return true
	}
	other := fl.Parent().FieldByName(fl.Param())
	if !other.IsValid() || other.Kind() != reflect.String {
		return true
	}
	start, err := v.day(ctx, other.String())
	if err != nil {
		return true
	}
	return !end.Before(start)
}

func (v *EventValidator) clockTime(ctx context.Context, fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if modeFrom(ctx) == Wire {
		_, err := v.codec.DecodeTime(s)
		return err == nil
	}
	_, _, err := codec.ParseDisplayTime(s)
	return err == nil
}

func (v *EventValidator) formRequired(ctx context.Context, fl validator.FieldLevel) bool {
	if modeFrom(ctx) == Wire {
		return true
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

func (v *EventValidator) day(ctx context.Context, s string) (time.Time, error) {
	if modeFrom(ctx) == Wire {
		return v.codec.CalendarDay(s)
	}
	return codec.ParseDisplayDate(s)
}

func trimDraft(d models.EventDraft) models.EventDraft {
	d.Title = strings.TrimSpace(d.Title)
	d.Date = strings.TrimSpace(d.Date)
	d.EndDate = strings.TrimSpace(d.EndDate)
	d.StartTime = strings.TrimSpace(d.StartTime)
	d.Venue = strings.TrimSpace(d.Venue)
	d.Location = strings.TrimSpace(d.Location)
	d.ImageURL = strings.TrimSpace(d.ImageURL)
	d.TicketURL = strings.TrimSpace(d.TicketURL)
	return d
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
