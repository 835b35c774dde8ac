// Package booking computes availability and commits appointments for one tenant at a time.
// Every operation takes the tenant id explicitly; nothing here reads it from context.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
		"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/schedule"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/timeutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is the persistence the engine needs. *storage.BookingRepository implements it.
type Store interface {
	GetService(ctx context.Context, businessID, serviceID string) (model.Service, error)
	GetProfessional(ctx context.Context, businessID, staffID string) (model.Professional, error)
	ListBlocking(ctx context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error)
	ListDay(ctx context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error)
	HasOverlap(ctx context.Context, businessID, staffID string, start, end time.Time, excludeID string) (bool, error)
	CreateAppointment(ctx context.Context, appt model.Appointment, evt outbox.Event) error
	UpdateAppointment(ctx context.Context, businessID, appointmentID string, mutate storage.Mutation) (model.Appointment, error)
	GetAppointment(ctx context.Context, businessID, appointmentID string) (model.Appointment, error)
	UpdateContactPhone(ctx context.Context, businessID, contactID, phone string) (bool, error)
}

// Calendar is told which staff days a write touched. *calendar.Notifier implements it.
type Calendar interface {
	Invalidate(ctx context.Context, businessID, staffID string, dates ...string) error
}

type Options struct {
	// Calendar is optional; nil skips change notices.
	Calendar Calendar
	Metrics  *metrics.BookingMetrics
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

type Engine struct {
	store    Store
	schedule schedule.Provider
	calendar Calendar
	metrics  *metrics.BookingMetrics
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	tracer   trace.Tracer
}

func NewEngine(store Store, provider schedule.Provider, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Engine{
		store:    store,
		schedule: provider,
		calendar: opts.Calendar,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
		tracer:   otel.Tracer("salonbook/booking"),
	}
}

func (e *Engine) settings(ctx context.Context, businessID string) (schedule.Settings, error) {
	s, err := e.schedule.Settings(ctx, businessID)
	if err != nil {
		return schedule.Settings{}, fmt.Errorf("booking: load schedule settings: %w", err)
	}
	return s, nil
}

// localDay places the calendar day of date (its Y/M/D as given) at midnight in loc.
func localDay(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (e *Engine) activeProfessional(ctx context.Context, businessID, staffID string) error {
	p, err := e.store.GetProfessional(ctx, businessID, staffID)
	if storage.IsNotFound(err) {
		return ErrProfessionalInactive
	}
	if err != nil {
		return fmt.Errorf("booking: load professional: %w", err)
	}
	if !p.IsActive {
		return ErrProfessionalInactive
	}
	return nil
}

func (e *Engine) service(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	svc, err := e.store.GetService(ctx, businessID, serviceID)
	if storage.IsNotFound(err) {
		return model.Service{}, ErrServiceNotFound
	}
	if err != nil {
		return model.Service{}, fmt.Errorf("booking: load service: %w", err)
	}
	if svc.DurationMins <= 0 {
		return model.Service{}, fmt.Errorf("%w: service %s has no duration", ErrInvalidRequest, serviceID)
	}
	return svc, nil
}

// HasConflict reports whether [start, end) intersects a non-cancelled appointment of the professional.
// No buffer is applied.
func (e *Engine) HasConflict(ctx context.Context, businessID, professionalID string, start, end time.Time) (bool, error) {
	overlap, err := e.store.HasOverlap(ctx, businessID, professionalID, start, end, "")
	if err != nil {
		return false, fmt.Errorf("booking: check conflict: %w", err)
	}
	return overlap, nil
}

func (e *Engine) invalidate(ctx context.Context, businessID, staffID string, loc *time.Location, days ...time.Time) {
	if e.calendar == nil {
		return
	}
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, d.In(loc).Format(timeutil.DateLayout))
	}
	if err := e.calendar.Invalidate(ctx, businessID, staffID, keys...); err != nil {
		e.logger.Warn("calendar invalidation failed", "business_id", businessID, "staff_id", staffID, "err", err)
		e.metrics.ObserveSideEffectFailure("calendar_invalidate")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func spanAttrs(businessID, staffID string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("business.id", businessID),
		attribute.String("staff.id", staffID),
	)
}
