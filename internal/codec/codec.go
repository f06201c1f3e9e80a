// Package codec converts event dates and times between the display strings
// used in the admin form (DD.MM.YYYY, HH:mm) and the ISO-8601 timestamps
// exchanged with the events API.
//
// One timezone policy applies everywhere:
//
//   - A calendar date carries no zone. It is written as midnight UTC of that
//     day. When read back, a value that is exactly midnight UTC (or a bare
//     YYYY-MM-DD) is taken as that UTC calendar day; any other instant is
//     moved into the viewer's zone before its day is taken.
//   - A time of day is a clock time in the viewer's zone. It is written on the
//     reference date 1970-01-01 and emitted as a UTC instant; only hour and
//     minute are meaningful when read back in the viewer's zone.
package codec

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DisplayDateLayout is the German-locale date used in form fields.
	DisplayDateLayout = "02.01.2006"
	// DisplayTimeLayout is the 24h clock time used in form fields.
	DisplayTimeLayout = "15:04"
	// WireLayout matches what browsers produce with Date.toISOString.
	WireLayout = "2006-01-02T15:04:05.000Z07:00"

	wireDateOnlyLayout = "2006-01-02"
	wireLocalLayout    = "2006-01-02T15:04:05"
)

var (
	displayDatePattern = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	displayTimePattern = regexp.MustCompile(`^(\d{2}):(\d{2})$`)
)

// ErrFormat is matched by every *FormatError.
var ErrFormat = errors.New("invalid format")

// FormatError reports a value that could not be converted.
type FormatError struct {
	Field  string
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%q)", e.Field, e.Reason, e.Input)
	}
	return fmt.Sprintf("%s (%q)", e.Reason, e.Input)
}

// Unwrap lets callers use errors.Is(err, ErrFormat).
func (e *FormatError) Unwrap() error {
	return ErrFormat
}

func formatErr(input, reason string) *FormatError {
	return &FormatError{Input: input, Reason: reason}
}

// Codec holds the viewer's timezone.
type Codec struct {
	loc *time.Location
}

// New returns a codec for loc. A nil location means time.Local.
func New(loc *time.Location) *Codec {
	if loc == nil {
		loc = time.Local
	}
	return &Codec{loc: loc}
}

// NewForZone loads an IANA zone name such as "Europe/Berlin".
func NewForZone(name string) (*Codec, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load display timezone %q: %w", name, err)
	}
	return New(loc), nil
}

// Location returns the viewer's timezone.
func (c *Codec) Location() *time.Location {
	return c.loc
}

// DecodeDate turns a wire timestamp into DD.MM.YYYY.
func (c *Codec) DecodeDate(wire string) (string, error) {
	t, dateOnly, err := c.parseWire(wire)
	if err != nil {
		return "", err
	}
	return c.calendarDay(t, dateOnly).Format(DisplayDateLayout), nil
}

// EncodeDate turns DD.MM.YYYY into midnight UTC of that day.
func (c *Codec) EncodeDate(display string) (string, error) {
	t, err := ParseDisplayDate(display)
	if err != nil {
		return "", err
	}
	return t.Format(WireLayout), nil
}

// DecodeTime turns a wire timestamp into HH:mm in the viewer's zone.
func (c *Codec) DecodeTime(wire string) (string, error) {
	t, dateOnly, err := c.parseWire(wire)
	if err != nil {
		return "", err
	}
	if dateOnly {
		return "", formatErr(wire, "timestamp has no time of day")
	}
	return t.In(c.loc).Format(DisplayTimeLayout), nil
}

// EncodeTime turns HH:mm into a timestamp on the reference date.
func (c *Codec) EncodeTime(display string) (string, error) {
	hour, minute, err := ParseDisplayTime(display)
	if err != nil {
		return "", err
	}
	t := time.Date(1970, time.January, 1, hour, minute, 0, 0, c.loc)
	return t.UTC().Format(WireLayout), nil
}

// CalendarDay returns the civil day of a wire date as midnight UTC, using
// the same rules as DecodeDate.
func (c *Codec) CalendarDay(wire string) (time.Time, error) {
	t, dateOnly, err := c.parseWire(wire)
	if err != nil {
		return time.Time{}, err
	}
	return c.calendarDay(t, dateOnly), nil
}

// Today returns the viewer's current civil day as midnight UTC.
func (c *Codec) Today(now time.Time) time.Time {
	local := now.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func (c *Codec) calendarDay(t time.Time, dateOnly bool) time.Time {
	src := t.In(c.loc)
	if dateOnly || isUTCMidnight(t) {
		src = t.UTC()
	}
	return time.Date(src.Year(), src.Month(), src.Day(), 0, 0, 0, 0, time.UTC)
}

func isUTCMidnight(t time.Time) bool {
	u := t.UTC()
	return u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0
}

// parseWire accepts RFC 3339 with or without fractional seconds, a bare
// date, or a zone-less date-time which is read in the viewer's zone.
func (c *Codec) parseWire(wire string) (time.Time, bool, error) {
	s := strings.TrimSpace(wire)
	if s == "" {
		return time.Time{}, false, formatErr(wire, "empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse(wireDateOnlyLayout, s); err == nil {
		return t, true, nil
	}
	if t, err := time.ParseInLocation(wireLocalLayout, s, c.loc); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, formatErr(wire, "not an ISO-8601 timestamp")
}

// ParseDisplayDate parses exactly DD.MM.YYYY and rejects impossible days.
// Year 0000 is rejected. The result is midnight UTC.
func ParseDisplayDate(display string) (time.Time, error) {
	s := strings.TrimSpace(display)
	if !displayDatePattern.MatchString(s) {
		return time.Time{}, formatErr(display, "expected DD.MM.YYYY")
	}
	t, err := time.Parse(DisplayDateLayout, s)
	if err != nil {
		return time.Time{}, formatErr(display, "not a calendar date")
	}
	if t.Year() < 1 {
		return time.Time{}, formatErr(display, "not a calendar date")
	}
	return t, nil
}

// ParseDisplayTime parses exactly HH:mm with hour 0-23 and minute 0-59.
func ParseDisplayTime(display string) (int, int, error) {
	m := displayTimePattern.FindStringSubmatch(strings.TrimSpace(display))
	if m == nil {
		return 0, 0, formatErr(display, "expected HH:mm")
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 {
		return 0, 0, formatErr(display, "hour out of range")
	}
	if minute > 59 {
		return 0, 0, formatErr(display, "minute out of range")
	}
	return hour, minute, nil
}
