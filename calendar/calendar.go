// Package calendar provides the host-side trading-calendar
// collaborator: call-auction window detection, trading-day lookup and
// next-trading-day advancement. It is consumed by cmd/exchangesim,
// never by the exchange core itself.
package calendar

import (
	"fmt"
	"time"
)

// Calendar answers trading-day and session-window questions for the
// host application driving the exchange core.
type Calendar interface {
	IsTradingDay(date int) bool
	NextTradingDay(date int) int
	IsCallAuctionWindow(t time.Time) bool
}

// StaticCalendar is a fixed weekday-plus-holiday-set implementation:
// no external feed, just config-supplied holiday dates.
type StaticCalendar struct {
	// Holidays holds YYYYMMDD dates excluded from trading even though
	// they fall on a weekday.
	Holidays map[int]bool
}

// NewStaticCalendar builds a StaticCalendar from an explicit holiday
// list.
func NewStaticCalendar(holidays []int) *StaticCalendar {
	set := make(map[int]bool, len(holidays))
	for _, d := range holidays {
		set[d] = true
	}
	return &StaticCalendar{Holidays: set}
}

// IsTradingDay reports whether date (YYYYMMDD) is a weekday not in the
// holiday set.
func (c *StaticCalendar) IsTradingDay(date int) bool {
	if c.Holidays[date] {
		return false
	}
	t, err := parseDate(date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextTradingDay returns the first trading day strictly after date.
func (c *StaticCalendar) NextTradingDay(date int) int {
	t, err := parseDate(date)
	if err != nil {
		return date
	}
	for {
		t = t.AddDate(0, 0, 1)
		next := formatDate(t)
		if c.IsTradingDay(next) {
			return next
		}
	}
}

// IsCallAuctionWindow reports whether t falls in either A-share
// call-auction window: the morning open, 09:20–09:25, or the
// afternoon close, 14:57–15:00, local exchange time.
func (c *StaticCalendar) IsCallAuctionWindow(t time.Time) bool {
	y, m, d := t.Date()
	loc := t.Location()

	morningStart := time.Date(y, m, d, 9, 20, 0, 0, loc)
	morningEnd := time.Date(y, m, d, 9, 25, 0, 0, loc)
	if !t.Before(morningStart) && t.Before(morningEnd) {
		return true
	}

	afternoonStart := time.Date(y, m, d, 14, 57, 0, 0, loc)
	afternoonEnd := time.Date(y, m, d, 15, 0, 0, 0, loc)
	return !t.Before(afternoonStart) && !t.After(afternoonEnd)
}

func parseDate(date int) (time.Time, error) {
	return time.Parse("20060102", fmt.Sprintf("%08d", date))
}

func formatDate(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
