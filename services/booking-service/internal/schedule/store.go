package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
)

// Store reads tenant_schedule_settings and falls back to a default for tenants without a row.
type Store struct {
	conn     db.Conn
	fallback Settings
}

func NewStore(conn db.Conn, fallback Settings) *Store {
	return &Store{conn: conn, fallback: fallback}
}

func (s *Store) Settings(ctx context.Context, businessID string) (Settings, error) {
	var (
		out    Settings
		closed []int32
	)
	err := s.conn.QueryRow(ctx, `
		SELECT open_hour, close_hour, step_minutes, buffer_minutes, timezone, closed_weekdays
		FROM tenant_schedule_settings
		WHERE business_id = $1
	`, businessID).Scan(&out.OpenHour, &out.CloseHour, &out.StepMinutes, &out.BufferMinutes, &out.Timezone, &closed)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.fallback, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("schedule: load settings: %w", err)
	}
	for _, d := range closed {
		out.ClosedWeekdays = append(out.ClosedWeekdays, time.Weekday(d))
	}
	if err := out.Validate(); err != nil {
		return Settings{}, fmt.Errorf("schedule: tenant %s: %w", businessID, err)
	}
	return out, nil
}

// Upsert replaces a tenant's settings.
func (s *Store) Upsert(ctx context.Context, businessID string, in Settings) error {
	if err := in.Validate(); err != nil {
		return err
	}
	closed := make([]int32, 0, len(in.ClosedWeekdays))
	for _, d := range in.ClosedWeekdays {
		closed = append(closed, int32(d))
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO tenant_schedule_settings
			(business_id, open_hour, close_hour, step_minutes, buffer_minutes, timezone, closed_weekdays)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (business_id) DO UPDATE
		SET open_hour = EXCLUDED.open_hour,
			close_hour = EXCLUDED.close_hour,
			step_minutes = EXCLUDED.step_minutes,
			buffer_minutes = EXCLUDED.buffer_minutes,
			timezone = EXCLUDED.timezone,
			closed_weekdays = EXCLUDED.closed_weekdays,
			updated_at = now()
	`, businessID, in.OpenHour, in.CloseHour, in.StepMinutes, in.BufferMinutes, in.Timezone, closed)
	if err != nil {
		return fmt.Errorf("schedule: upsert settings: %w", err)
	}
	return nil
}
