package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/config"
)

// FromEnv reads process-wide defaults (BUSINESS_OPEN_HOUR, BUSINESS_CLOSE_HOUR, SLOT_STEP_MINUTES,
// SLOT_BUFFER_MINUTES, BUSINESS_TIMEZONE, BUSINESS_CLOSED_WEEKDAYS).
func FromEnv() (Settings, error) {
	s := Defaults()
	var err error
	if s.OpenHour, err = config.Int("BUSINESS_OPEN_HOUR", s.OpenHour); err != nil {
		return Settings{}, err
	}
	if s.CloseHour, err = config.Int("BUSINESS_CLOSE_HOUR", s.CloseHour); err != nil {
		return Settings{}, err
	}
	if s.StepMinutes, err = config.Int("SLOT_STEP_MINUTES", s.StepMinutes); err != nil {
		return Settings{}, err
	}
	if s.BufferMinutes, err = config.Int("SLOT_BUFFER_MINUTES", s.BufferMinutes); err != nil {
		return Settings{}, err
	}
	s.Timezone = config.String("BUSINESS_TIMEZONE", s.Timezone)
	for _, raw := range config.List("BUSINESS_CLOSED_WEEKDAYS") {
		day, ok := parseWeekday(raw)
		if !ok {
			return Settings{}, ErrInvalidSettings
		}
		s.ClosedWeekdays = append(s.ClosedWeekdays, day)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func parseWeekday(raw string) (time.Weekday, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), true
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if raw == name || raw == name[:3] {
			return d, true
		}
	}
	return 0, false
}
