package codec

import (
	"errors"
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testZones = []string{"UTC", "Europe/Berlin", "America/Los_Angeles", "Pacific/Kiritimati", "Asia/Kathmandu"}

func mustCodec(t *testing.T, zone string) *Codec {
	t.Helper()
	c, err := NewForZone(zone)
	require.NoError(t, err)
	return c
}

func TestEncodeDateWritesMidnightUTC(t *testing.T) {
	c := mustCodec(t, "Europe/Berlin")

	wire, err := c.EncodeDate("20.06.2025")

	require.NoError(t, err)
	assert.Equal(t, "2025-06-20T00:00:00.000Z", wire)
}

func TestDateRoundTripInEveryZone(t *testing.T) {
	for _, zone := range testZones {
		c := mustCodec(t, zone)
		t.Run(zone, func(t *testing.T) {
			day := time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
			end := time.Date(2040, time.December, 31, 0, 0, 0, 0, time.UTC)
			for ; !day.After(end); day = day.AddDate(0, 0, 1) {
				display := day.Format(DisplayDateLayout)
				wire, err := c.EncodeDate(display)
				require.NoError(t, err, display)
				back, err := c.DecodeDate(wire)
				require.NoError(t, err, wire)
				if back != display {
					t.Fatalf("round trip of %s via %s gave %s", display, wire, back)
				}
			}
		})
	}
}

func TestEncodeDateRejectsMalformedInput(t *testing.T) {
	c := mustCodec(t, "Europe/Berlin")
	inputs := []string{"31.02.2025", "29.02.2023", "32.01.2025", "00.01.2025", "01.13.2025", "1.6.2025", "20.06.25", "2025-06-20", "", "20/06/2025", "20.06.2025 ", "01.01.0000"}

	for _, input := range inputs {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			_, err := c.EncodeDate(input)
			if input == "20.06.2025 " {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var fe *FormatError
			assert.True(t, errors.As(err, &fe))
			assert.True(t, errors.Is(err, ErrFormat))
		})
	}
}

func TestEncodeDateAcceptsLeapDay(t *testing.T) {
	c := mustCodec(t, "UTC")
	wire, err := c.EncodeDate("29.02.2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29T00:00:00.000Z", wire)
}

func TestDecodeDateUsesViewerZoneForNonMidnightInstants(t *testing.T) {
	berlin := mustCodec(t, "Europe/Berlin")
	la := mustCodec(t, "America/Los_Angeles")

	cases := []struct {
		name string
		c    *Codec
		wire string
		want string
	}{
		{name: "berlin local midnight", c: berlin, wire: "2025-06-19T22:00:00.000Z", want: "20.06.2025"},
		{name: "utc midnight stays on its day", c: la, wire: "2025-06-20T00:00:00Z", want: "20.06.2025"},
		{name: "bare date", c: la, wire: "2025-06-20", want: "20.06.2025"},
		{name: "evening instant in la", c: la, wire: "2025-06-21T03:00:00.000Z", want: "20.06.2025"},
		{name: "offset timestamp", c: berlin, wire: "2025-06-20T23:30:00+02:00", want: "20.06.2025"},
		{name: "zone-less timestamp read locally", c: berlin, wire: "2025-06-20T18:00:00", want: "20.06.2025"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.c.DecodeDate(tc.wire)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeDateRejectsGarbage(t *testing.T) {
	c := mustCodec(t, "UTC")
	for _, input := range []string{"", "yesterday", "20.06.2025", "2025-13-01T00:00:00Z"} {
		_, err := c.DecodeDate(input)
		assert.ErrorIs(t, err, ErrFormat, input)
	}
}

func TestTimeRoundTripInEveryZone(t *testing.T) {
	for _, zone := range testZones {
		c := mustCodec(t, zone)
		t.Run(zone, func(t *testing.T) {
			for h := 0; h < 24; h++ {
				for m := 0; m < 60; m++ {
					display := fmt.Sprintf("%02d:%02d", h, m)
					wire, err := c.EncodeTime(display)
					require.NoError(t, err, display)
					back, err := c.DecodeTime(wire)
					require.NoError(t, err, wire)
					if back != display {
						t.Fatalf("round trip of %s via %s gave %s", display, wire, back)
					}
				}
			}
		})
	}
}

func TestEncodeTimeUsesReferenceDate(t *testing.T) {
	c := mustCodec(t, "Europe/Berlin")

	wire, err := c.EncodeTime("20:15")

	require.NoError(t, err)
	assert.Equal(t, "1970-01-01T19:15:00.000Z", wire)
}

func TestEncodeTimeRejectsOutOfRange(t *testing.T) {
	c := mustCodec(t, "UTC")
	for _, input := range []string{"24:00", "12:60", "7:30", "07:3", "ab:cd", "", "07:30:00"} {
		_, err := c.EncodeTime(input)
		assert.ErrorIs(t, err, ErrFormat, input)
	}
}

func TestDecodeTimeReadsClockInViewerZone(t *testing.T) {
	c := mustCodec(t, "Europe/Berlin")

	got, err := c.DecodeTime("2025-06-20T18:30:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, "20:30", got)

	_, err = c.DecodeTime("2025-06-20")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = c.DecodeTime("not a time")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestCalendarDayAndToday(t *testing.T) {
	c := mustCodec(t, "Europe/Berlin")

	day, err := c.CalendarDay("2025-06-19T22:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), day)

	now := time.Date(2025, 6, 19, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), c.Today(now))
}

func TestNewForZoneRejectsUnknownZone(t *testing.T) {
	_, err := NewForZone("Mars/Olympus_Mons")
	assert.Error(t, err)
}
