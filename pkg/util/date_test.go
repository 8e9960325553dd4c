package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s, nil)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeLayouts(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("no tzdata")
	}
	got, ok := ParseTime("2024-03-01 09:30:00", ny)
	assert.True(t, ok)
	assert.Equal(t, 14, got.UTC().Hour())

	got, ok = ParseTime("2024-03-01", time.UTC)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10), nil)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("garbage", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"SPY", "QQQ"}, SplitList(" SPY,,QQQ "))
	assert.Nil(t, SplitList(""))
}

func TestDayStamp(t *testing.T) {
	assert.Equal(t, "20240102", DayStamp(time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC)))
}
