// Package markethours answers NYSE session questions in America/New_York time.
package markethours

import (
	"fmt"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo

	"FinSignal/pkg/util"
)

// NewYork is the exchange time zone.
var NewYork = mustLoad("America/New_York")

// Regular session in exchange time. The close is inclusive.
const (
	OpenHour   = 9
	OpenMinute = 30
	CloseHour  = 16
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %s: %v", name, err))
	}
	return loc
}

// Calendar is the NYSE calendar plus optional extra closures.
type Calendar struct {
	extra map[string]bool
}

// New builds a calendar; extra holds additional YYYY-MM-DD closures.
func New(extra ...string) (*Calendar, error) {
	c := &Calendar{extra: make(map[string]bool, len(extra))}
	for _, d := range extra {
		if _, err := time.ParseInLocation(util.DateLayout, d, NewYork); err != nil {
			return nil, fmt.Errorf("parse holiday %q: %w", d, err)
		}
		c.extra[d] = true
	}
	return c, nil
}

// IsHoliday reports whether the exchange date of t is a full closure.
func (c *Calendar) IsHoliday(t time.Time) bool {
	ny := t.In(NewYork)
	key := ny.Format(util.DateLayout)
	if c.extra[key] {
		return true
	}
	for _, h := range Holidays(ny.Year()) {
		if h.Format(util.DateLayout) == key {
			return true
		}
	}
	return false
}

// IsWeekday returns true if t is Mon–Fri in exchange time.
func IsWeekday(t time.Time) bool {
	wd := t.In(NewYork).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	return IsWeekday(t) && !c.IsHoliday(t)
}

// SessionOpen returns the regular open on t's exchange date.
func SessionOpen(t time.Time) time.Time {
	ny := t.In(NewYork)
	return time.Date(ny.Year(), ny.Month(), ny.Day(), OpenHour, OpenMinute, 0, 0, NewYork)
}

// SessionClose returns the regular close on t's exchange date.
func SessionClose(t time.Time) time.Time {
	ny := t.In(NewYork)
	return time.Date(ny.Year(), ny.Month(), ny.Day(), CloseHour, 0, 0, 0, NewYork)
}

// IsOpen reports whether t falls in the regular session, 09:30 through 16:00 inclusive.
func (c *Calendar) IsOpen(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	return !t.Before(SessionOpen(t)) && !t.After(SessionClose(t))
}

// NextOpen returns the next session open strictly after t, or today's open
// when t is earlier on a trading day.
func (c *Calendar) NextOpen(t time.Time) time.Time {
	if open := SessionOpen(t); t.Before(open) && c.IsTradingDay(t) {
		return open
	}
	d := SessionOpen(t)
	for i := 0; i < 14; i++ {
		d = d.AddDate(0, 0, 1)
		if c.IsTradingDay(d) {
			return d
		}
	}
	return SessionOpen(t).AddDate(0, 0, 1)
}

// TimeUntilOpen returns the wait until the next open; zero while the market is open.
func (c *Calendar) TimeUntilOpen(t time.Time) time.Duration {
	if c.IsOpen(t) {
		return 0
	}
	return c.NextOpen(t).Sub(t)
}

// TimeUntilClose returns the duration until today's close, or 0 when closed.
func (c *Calendar) TimeUntilClose(t time.Time) time.Duration {
	if !c.IsOpen(t) {
		return 0
	}
	return SessionClose(t).Sub(t)
}

// TradingDay is the YYYYMMDD exchange date of t.
func TradingDay(t time.Time) string {
	return util.DayStamp(t.In(NewYork))
}

// StatusString returns a human-readable market status.
func (c *Calendar) StatusString(t time.Time) string {
	if c.IsOpen(t) {
		return fmt.Sprintf("market open, closes in %s", fmtDur(c.TimeUntilClose(t)))
	}
	next := c.NextOpen(t)
	return fmt.Sprintf("market closed, opens %s %s (%s)",
		next.Weekday().String()[:3], next.Format("2006-01-02 15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
