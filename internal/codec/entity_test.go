package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gigboard/internal/models"
)

func strPtr(s string) *string { return &s }

func TestEncodeDraftNormalizesOptionalFields(t *testing.T) {
	c := mustCodec(t, "Europe/Berlin")

	in, err := c.EncodeDraft(models.EventDraft{
		Title:     "  Album Release  ",
		Date:      "20.06.2025",
		EndDate:   "21.06.2025",
		StartTime: "20:00",
		Venue:     "Columbiahalle",
		Location:  "Columbiadamm 13, Berlin",
		ImageURL:  "   ",
		TicketURL: "",
	})

	require.NoError(t, err)
	assert.Equal(t, "Album Release", in.Title)
	assert.Equal(t, "2025-06-20T00:00:00.000Z", in.Date)
	require.NotNil(t, in.EndDate)
	assert.Equal(t, "2025-06-21T00:00:00.000Z", *in.EndDate)
	require.NotNil(t, in.StartTime)
	assert.Equal(t, "1970-01-01T19:00:00.000Z", *in.StartTime)
	assert.Nil(t, in.Description)
	assert.Nil(t, in.ImageURL)
	assert.Nil(t, in.TicketURL)

	body, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"imageUrl":null`)
	assert.NotContains(t, string(body), `""`)
}

func TestEncodeDraftReportsFieldOfFormatError(t *testing.T) {
	c := mustCodec(t, "UTC")

	_, err := c.EncodeDraft(models.EventDraft{Title: "x", Date: "20.06.2025", StartTime: "25:00"})

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FieldStartTime, fe.Field)
}

func TestDecodeEventBuildsDisplayDraft(t *testing.T) {
	c := mustCodec(t, "Europe/Berlin")

	draft, err := c.DecodeEvent(models.Event{
		ID:        "7",
		Title:     "Festival",
		Date:      "2025-06-20T00:00:00.000Z",
		EndDate:   strPtr("2025-06-22T00:00:00.000Z"),
		StartTime: strPtr("1970-01-01T19:00:00.000Z"),
		Venue:     strPtr("Open Air"),
		ImageURL:  nil,
		TicketURL: strPtr(""),
	})

	require.NoError(t, err)
	assert.Equal(t, models.EventDraft{
		Title:     "Festival",
		Date:      "20.06.2025",
		EndDate:   "22.06.2025",
		StartTime: "20:00",
		Venue:     "Open Air",
	}, draft)
}

func TestDraftRoundTripThroughWire(t *testing.T) {
	c := mustCodec(t, "America/Los_Angeles")
	draft := models.EventDraft{
		Title:       "Club Show",
		Date:        "01.03.2026",
		EndDate:     "02.03.2026",
		StartTime:   "23:45",
		Description: "Late set",
		Venue:       "Bar",
		Location:    "Main St",
		ImageURL:    "https://img.example/a.jpg",
		TicketURL:   "https://tickets.example/a",
	}

	in, err := c.EncodeDraft(draft)
	require.NoError(t, err)

	back, err := c.DecodeEvent(models.Event{
		Title:       in.Title,
		Date:        in.Date,
		EndDate:     in.EndDate,
		StartTime:   in.StartTime,
		Description: in.Description,
		Venue:       in.Venue,
		Location:    in.Location,
		ImageURL:    in.ImageURL,
		TicketURL:   in.TicketURL,
	})
	require.NoError(t, err)
	assert.Equal(t, draft, back)
}

func TestNormalizeEventTurnsBlankIntoNil(t *testing.T) {
	e := NormalizeEvent(models.Event{ImageURL: strPtr(""), TicketURL: strPtr(" https://t.example "), EndDate: strPtr("")})

	assert.Nil(t, e.ImageURL)
	assert.Nil(t, e.EndDate)
	require.NotNil(t, e.TicketURL)
	assert.Equal(t, "https://t.example", *e.TicketURL)
}

func TestDisplayRange(t *testing.T) {
	c := mustCodec(t, "Europe/Berlin")

	dates, clock, err := c.DisplayRange(models.Event{
		Date:      "2025-06-20T00:00:00.000Z",
		EndDate:   strPtr("2025-06-22T00:00:00.000Z"),
		StartTime: strPtr("1970-01-01T19:00:00.000Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, "20.06.2025 – 22.06.2025", dates)
	assert.Equal(t, "20:00", clock)

	dates, clock, err = c.DisplayRange(models.Event{
		Date:    "2025-06-20T00:00:00.000Z",
		EndDate: strPtr("2025-06-20T00:00:00.000Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, "20.06.2025", dates)
	assert.Empty(t, clock)

	_, _, err = c.DisplayRange(models.Event{Date: "soon"})
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FieldDate, fe.Field)
}
