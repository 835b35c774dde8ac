package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/metrics"
	"github.com/segmentio/kafka-go"
)

const TopicScheduleUpdated = "business.schedule.updated.v1"

var ErrMissingBusiness = errors.New("consumer: schedule event without business_id")

type SettingsForgetter interface {
	Forget(ctx context.Context, businessID string) error
}

type CalendarInvalidator interface {
	InvalidateBusiness(ctx context.Context, businessID string) (int64, error)
}

type scheduleUpdated struct {
	BusinessID string `json:"business_id"`
}

// ScheduleUpdated drops the tenant's cached settings so the next availability read sees
// the new opening hours, and tells calendar views every day of the tenant changed.
func ScheduleUpdated(settings SettingsForgetter, calendars CalendarInvalidator, m *metrics.BookingMetrics, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, msg kafka.Message) error {
		var evt scheduleUpdated
		if len(msg.Value) > 0 {
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				m.ObserveSettingsEvent("invalid")
				return fmt.Errorf("consumer: decode schedule event: %w", err)
			}
		}
		businessID := strings.TrimSpace(evt.BusinessID)
		if businessID == "" {
			businessID = strings.TrimSpace(string(msg.Key))
		}
		if businessID == "" {
			m.ObserveSettingsEvent("invalid")
			return ErrMissingBusiness
		}

		if err := settings.Forget(ctx, businessID); err != nil {
			m.ObserveSettingsEvent("error")
			return fmt.Errorf("consumer: forget settings: %w", err)
		}
		var version int64
		if calendars != nil {
			n, err := calendars.InvalidateBusiness(ctx, businessID)
			if err != nil {
				m.ObserveSettingsEvent("error")
				return fmt.Errorf("consumer: invalidate calendar: %w", err)
			}
			version = n
		}
		m.ObserveSettingsEvent("applied")
		logger.InfoContext(ctx, "schedule settings refreshed", "business_id", businessID, "calendar_version", version)
		return nil
	}
}
