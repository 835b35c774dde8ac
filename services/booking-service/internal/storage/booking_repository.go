package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
)

// ErrOverlap is returned when a write would place two blocking appointments of one staff member
// on intersecting intervals, whether caught by the re-check or by the exclusion constraint.
var ErrOverlap = errors.New("appointment overlaps an existing one")

type BookingRepository struct {
	conn   db.Conn
	outbox *outbox.Repository
}

func NewBookingRepository(conn db.Conn, outboxRepo *outbox.Repository) *BookingRepository {
	if outboxRepo == nil {
		outboxRepo = outbox.NewRepository()
	}
	return &BookingRepository{conn: conn, outbox: outboxRepo}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const appointmentColumns = `
	id::text, business_id::text, COALESCE(contact_id::text, ''), staff_id::text, service_id::text,
	start_time, end_time, status, total_amount::text, cancelled_at, COALESCE(cancellation_reason, ''),
	created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		appt   model.Appointment
		status string
	)
	err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.ContactID,
		&appt.StaffID,
		&appt.ServiceID,
		&appt.StartTime,
		&appt.EndTime,
		&status,
		&appt.TotalAmount,
		&appt.CancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	return appt, nil
}

func (r *BookingRepository) GetService(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	var svc model.Service
	err := r.conn.QueryRow(ctx, `
		SELECT id::text, business_id::text, title, price::text, duration_minutes, COALESCE(category, '')
		FROM services
		WHERE id = $1 AND business_id = $2
	`, serviceID, businessID).Scan(&svc.ID, &svc.BusinessID, &svc.Title, &svc.Price, &svc.DurationMins, &svc.Category)
	if err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

func (r *BookingRepository) GetProfessional(ctx context.Context, businessID, staffID string) (model.Professional, error) {
	var p model.Professional
	err := r.conn.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, is_active, COALESCE(color, '')
		FROM staff
		WHERE id = $1 AND business_id = $2
	`, staffID, businessID).Scan(&p.ID, &p.BusinessID, &p.Name, &p.IsActive, &p.Color)
	if err != nil {
		return model.Professional{}, err
	}
	return p, nil
}

// ListBlocking returns non-cancelled appointments of staffID that start at or before to and end after from.
func (r *BookingRepository) ListBlocking(ctx context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
			AND staff_id = $2
			AND status <> 'cancelled'
			AND start_time <= $4
			AND end_time > $3
		ORDER BY start_time ASC
	`, businessID, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListDay returns every appointment, cancelled ones included, starting in [from, to).
// An empty staffID lists the whole business.
func (r *BookingRepository) ListDay(ctx context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
			AND ($2 = '' OR staff_id::text = $2)
			AND start_time >= $3
			AND start_time < $4
		ORDER BY start_time ASC, staff_id
	`, businessID, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// HasOverlap reports whether a non-cancelled appointment of staffID intersects [start, end).
// excludeID, when set, is ignored so an appointment never conflicts with itself.
func (r *BookingRepository) HasOverlap(ctx context.Context, businessID, staffID string, start, end time.Time, excludeID string) (bool, error) {
	return hasOverlap(ctx, r.conn, businessID, staffID, start, end, excludeID)
}

func hasOverlap(ctx context.Context, q rowQuerier, businessID, staffID string, start, end time.Time, excludeID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE business_id = $1
				AND staff_id = $2
				AND status <> 'cancelled'
				AND start_time < $4
				AND end_time > $3
				AND id::text <> $5
		)
	`, businessID, staffID, start, end, excludeID).Scan(&exists)
	return exists, err
}

// lockStaff serializes writes to one staff calendar for the rest of tx.
func lockStaff(ctx context.Context, tx pgx.Tx, businessID, staffID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text || ':' || $2::text))`, businessID, staffID)
	return err
}

// CreateAppointment inserts appt and evt in one transaction. The staff calendar is locked and
// re-checked for overlaps first; the exclusion constraint backs the re-check.
func (r *BookingRepository) CreateAppointment(ctx context.Context, appt model.Appointment, evt outbox.Event) error {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockStaff(ctx, tx, appt.BusinessID, appt.StaffID); err != nil {
		return fmt.Errorf("lock staff calendar: %w", err)
	}
	overlap, err := hasOverlap(ctx, tx, appt.BusinessID, appt.StaffID, appt.StartTime, appt.EndTime, "")
	if err != nil {
		return fmt.Errorf("re-check overlap: %w", err)
	}
	if overlap {
		return ErrOverlap
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments
			(id, business_id, contact_id, staff_id, service_id, start_time, end_time, status)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8)
	`, appt.ID, appt.BusinessID, appt.ContactID, appt.StaffID, appt.ServiceID, appt.StartTime, appt.EndTime, string(appt.Status))
	if err != nil {
		if IsConflict(err) {
			return ErrOverlap
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		if IsConflict(err) {
			return ErrOverlap
		}
		return err
	}
	return nil
}

// Mutation computes the new state of a locked appointment and the event describing the change.
type Mutation func(current model.Appointment) (model.Appointment, outbox.Event, error)

// UpdateAppointment applies mutate to the appointment under the staff calendar lock and a row lock.
// When the result blocks the calendar it is re-checked for overlaps against everything but itself.
func (r *BookingRepository) UpdateAppointment(ctx context.Context, businessID, appointmentID string, mutate Mutation) (model.Appointment, error) {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var staffID string
	err = tx.QueryRow(ctx, `
		SELECT staff_id::text FROM appointments WHERE id = $1 AND business_id = $2
	`, appointmentID, businessID).Scan(&staffID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := lockStaff(ctx, tx, businessID, staffID); err != nil {
		return model.Appointment{}, fmt.Errorf("lock staff calendar: %w", err)
	}

	current, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND business_id = $2
		FOR UPDATE
	`, appointmentID, businessID))
	if err != nil {
		return model.Appointment{}, err
	}

	next, evt, err := mutate(current)
	if err != nil {
		return model.Appointment{}, err
	}

	if next.Blocking() {
		overlap, err := hasOverlap(ctx, tx, businessID, next.StaffID, next.StartTime, next.EndTime, next.ID)
		if err != nil {
			return model.Appointment{}, fmt.Errorf("re-check overlap: %w", err)
		}
		if overlap {
			return model.Appointment{}, ErrOverlap
		}
	}

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
			start_time = $4,
			end_time = $5,
			cancelled_at = $6,
			cancellation_reason = NULLIF($7, ''),
			total_amount = $8::numeric,
			updated_at = now()
		WHERE id = $1 AND business_id = $2
		RETURNING `+appointmentColumns,
		appointmentID, businessID, string(next.Status), next.StartTime, next.EndTime, next.CancelledAt, next.CancelReason, next.TotalAmount))
	if err != nil {
		if IsConflict(err) {
			return model.Appointment{}, ErrOverlap
		}
		return model.Appointment{}, fmt.Errorf("update appointment: %w", err)
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, fmt.Errorf("insert outbox event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return updated, nil
}

func (r *BookingRepository) GetAppointment(ctx context.Context, businessID, appointmentID string) (model.Appointment, error) {
	return scanAppointment(r.conn.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND business_id = $2
	`, appointmentID, businessID))
}

// UpdateContactPhone sets the phone of an existing contact. Reports false when no row matched.
func (r *BookingRepository) UpdateContactPhone(ctx context.Context, businessID, contactID, phone string) (bool, error) {
	tag, err := r.conn.Exec(ctx, `
		UPDATE contacts
		SET phone = $3, updated_at = now()
		WHERE id = $1 AND business_id = $2
	`, contactID, businessID, phone)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func IsConflict(err error) bool {
	return db.HasCode(err, db.CodeExclusionViolation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
