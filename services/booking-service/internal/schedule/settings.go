// Package schedule resolves the per-tenant business hours that slot generation and booking
// are computed against.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/timeutil"
)

type Settings struct {
	OpenHour       int            `json:"open_hour"`
	CloseHour      int            `json:"close_hour"`
	StepMinutes    int            `json:"step_minutes"`
	BufferMinutes  int            `json:"buffer_minutes"`
	Timezone       string         `json:"timezone"`
	ClosedWeekdays []time.Weekday `json:"closed_weekdays,omitempty"`
}

var ErrInvalidSettings = errors.New("invalid schedule settings")

// Defaults are used for tenants without a settings row.
func Defaults() Settings {
	return Settings{
		OpenHour:      9,
		CloseHour:     19,
		StepMinutes:   30,
		BufferMinutes: 10,
		Timezone:      "UTC",
	}
}

func (s Settings) Validate() error {
	if s.OpenHour < 0 || s.CloseHour > 24 || s.OpenHour >= s.CloseHour {
		return fmt.Errorf("%w: hours %d-%d", ErrInvalidSettings, s.OpenHour, s.CloseHour)
	}
	if s.StepMinutes <= 0 {
		return fmt.Errorf("%w: step %d", ErrInvalidSettings, s.StepMinutes)
	}
	if s.BufferMinutes < 0 {
		return fmt.Errorf("%w: buffer %d", ErrInvalidSettings, s.BufferMinutes)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q", ErrInvalidSettings, s.Timezone)
	}
	for _, d := range s.ClosedWeekdays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d", ErrInvalidSettings, d)
		}
	}
	return nil
}

// Location returns the tenant's timezone, UTC when unset or unknown.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s Settings) Step() time.Duration {
	return time.Duration(s.StepMinutes) * time.Minute
}

func (s Settings) Buffer() time.Duration {
	return time.Duration(s.BufferMinutes) * time.Minute
}

func (s Settings) ClosedOn(day time.Weekday) bool {
	for _, d := range s.ClosedWeekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Day returns opening and closing instants for the calendar day of date, in the tenant's location.
func (s Settings) Day(date time.Time) (time.Time, time.Time) {
	local := date.In(s.Location())
	return timeutil.SetLocalTime(local, s.OpenHour, 0), timeutil.SetLocalTime(local, s.CloseHour, 0)
}
