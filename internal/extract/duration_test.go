package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"callscribe/internal/domain"
)

func TestParseClockDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"12:34", 754},
		{"1:23:45", 5025},
		{" 0:05 ", 5},
		{"90:00", 5400},
		{"", 0},
		{"12", 0},
		{"12:60", 0},
		{"1:60:00", 0},
		{"ab:cd", 0},
		{"12:34 min", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseClockDuration(tt.in))
		})
	}
}

func TestDurationFormatting(t *testing.T) {
	assert.Equal(t, "12 minutes 34 seconds", domain.FormatDuration(ParseClockDuration("12:34")))
	assert.Equal(t, "83 minutes 45 seconds", domain.FormatDuration(ParseClockDuration("1:23:45")))
	assert.Equal(t, "0 minutes 0 seconds", domain.FormatDuration(ParseClockDuration("")))
}

func TestFindClock(t *testing.T) {
	assert.Equal(t, "32:10", findClock("Duration 32:10 total"))
	assert.Equal(t, "1:02:03", findClock("length: 1:02:03"))
	assert.Equal(t, "", findClock("no clock here"))
}

func TestFindClock_SkipsTimeOfDay(t *testing.T) {
	assert.Equal(t, "", findClock("10:30 AM"))
	assert.Equal(t, "", findClock("started 9:05pm"))
	assert.Equal(t, "", findClock("at 4:15 p.m."))
	assert.Equal(t, "45:12", findClock("10:30 AM, lasted 45:12"))
}
