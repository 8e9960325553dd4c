package markethours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, NewYork)
}

func TestHolidays(t *testing.T) {
	cal, err := New()
	require.NoError(t, err)

	cases := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"independence day", at(2024, time.July, 4, 12, 0, 0), true},
		{"good friday", at(2024, time.March, 29, 12, 0, 0), true},
		{"thanksgiving", at(2024, time.November, 28, 12, 0, 0), true},
		{"christmas observed on friday", at(2021, time.December, 24, 12, 0, 0), true},
		{"new year on saturday is not moved", at(2021, time.December, 31, 12, 0, 0), false},
		{"juneteenth observed on monday", at(2022, time.June, 20, 12, 0, 0), true},
		{"memorial day", at(2024, time.May, 27, 12, 0, 0), true},
		{"mlk day", at(2025, time.January, 20, 12, 0, 0), true},
		{"regular tuesday", at(2024, time.March, 5, 12, 0, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cal.IsHoliday(tc.day))
		})
	}
}

func TestIsOpen(t *testing.T) {
	cal, err := New("2024-03-06")
	require.NoError(t, err)

	t.Run("session bounds are inclusive", func(t *testing.T) {
		assert.False(t, cal.IsOpen(at(2024, time.March, 5, 9, 29, 59)))
		assert.True(t, cal.IsOpen(at(2024, time.March, 5, 9, 30, 0)))
		assert.True(t, cal.IsOpen(at(2024, time.March, 5, 16, 0, 0)))
		assert.False(t, cal.IsOpen(at(2024, time.March, 5, 16, 0, 1)))
	})

	t.Run("weekends and extra closures are shut", func(t *testing.T) {
		assert.False(t, cal.IsOpen(at(2024, time.March, 9, 11, 0, 0)))
		assert.False(t, cal.IsOpen(at(2024, time.March, 6, 11, 0, 0)))
	})

	t.Run("other zones are converted", func(t *testing.T) {
		utc := time.Date(2024, time.March, 5, 15, 0, 0, 0, time.UTC) // 10:00 EST
		assert.True(t, cal.IsOpen(utc))
	})
}

func TestNextOpen(t *testing.T) {
	cal, err := New()
	require.NoError(t, err)

	t.Run("before the bell on a trading day", func(t *testing.T) {
		now := at(2024, time.March, 5, 8, 0, 0)
		assert.Equal(t, at(2024, time.March, 5, 9, 30, 0), cal.NextOpen(now))
		assert.Equal(t, 90*time.Minute, cal.TimeUntilOpen(now))
	})

	t.Run("friday evening skips the weekend and memorial day", func(t *testing.T) {
		now := at(2024, time.May, 24, 17, 0, 0)
		assert.Equal(t, at(2024, time.May, 28, 9, 30, 0), cal.NextOpen(now))
	})

	t.Run("open market waits for nothing", func(t *testing.T) {
		now := at(2024, time.March, 5, 10, 0, 0)
		assert.Zero(t, cal.TimeUntilOpen(now))
		assert.Equal(t, 6*time.Hour, cal.TimeUntilClose(now))
		assert.Contains(t, cal.StatusString(now), "market open")
	})
}

func TestNewRejectsBadDates(t *testing.T) {
	_, err := New("2024/01/01")
	assert.Error(t, err)
}

func TestTradingDay(t *testing.T) {
	// 02:00 UTC is still the previous evening in New York
	assert.Equal(t, "20240305", TradingDay(time.Date(2024, time.March, 6, 2, 0, 0, 0, time.UTC)))
}
