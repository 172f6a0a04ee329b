// Package worktime converts work-session bounds into billable hours.
package worktime

import (
	"errors"
	"time"

	"eventflow/internal/models"
	"eventflow/internal/util"
)

// MaxSpan bounds a single session. Bare times can never exceed it; full
// date-times from the admin path are rejected beyond it.
const MaxSpan = 24 * time.Hour

var (
	ErrMissingTime = errors.New("worktime: start and end are both required")
	ErrSpanTooLong = errors.New("worktime: session spans more than 24 hours")
)

// Between returns the hours from start to end rounded to two decimals.
// An end at or before the start is read as the next day; equal bounds
// yield zero.
func Between(start, end time.Time) (float64, error) {
	if end.Equal(start) {
		return 0, nil
	}
	if end.Before(start) {
		end = end.Add(24 * time.Hour)
	}
	d := end.Sub(start)
	if d > MaxSpan {
		return 0, ErrSpanTooLong
	}
	return util.Round2(d.Hours()), nil
}

// Hours combines both clock times with the service date.
func Hours(date models.Date, start, end models.ClockTime) float64 {
	// same-day clock times never exceed MaxSpan
	h, _ := Between(date.At(start), date.At(end))
	return h
}

// HoursOptional is Hours for partially known sessions: it returns nil when
// either bound is unknown.
func HoursOptional(date models.Date, start, end *models.ClockTime) *float64 {
	if start == nil || end == nil {
		return nil
	}
	h := Hours(date, *start, *end)
	return &h
}

// Require is HoursOptional for callers that need both bounds.
func Require(date models.Date, start, end *models.ClockTime) (float64, error) {
	h := HoursOptional(date, start, end)
	if h == nil {
		return 0, ErrMissingTime
	}
	return *h, nil
}
