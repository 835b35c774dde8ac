package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/schedule"
	"go.opentelemetry.io/otel/attribute"
)

// GenerateSlots lists every candidate start for a service of durationMins on date, marking each one
// available or not with the reason. A duration that fits nowhere yields an empty list.
func (e *Engine) GenerateSlots(ctx context.Context, businessID, professionalID string, date time.Time, durationMins int) (slots []availability.Slot, err error) {
	ctx, span := e.tracer.Start(ctx, "booking.GenerateSlots", spanAttrs(businessID, professionalID))
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("service.duration_minutes", durationMins))

	if !validID(businessID) || !validID(professionalID) {
		return nil, ErrInvalidRequest
	}
	if durationMins <= 0 {
		return []availability.Slot{}, nil
	}
	if err := e.activeProfessional(ctx, businessID, professionalID); err != nil {
		return nil, err
	}
	settings, err := e.settings(ctx, businessID)
	if err != nil {
		return nil, err
	}
	return e.generate(ctx, businessID, professionalID, localDay(date, settings.Location()), durationMins, settings)
}

// GenerateSlotsForService resolves the duration from the service and generates its slots.
func (e *Engine) GenerateSlotsForService(ctx context.Context, businessID, professionalID, serviceID string, date time.Time) ([]availability.Slot, error) {
	if !validID(businessID) || !validID(serviceID) {
		return nil, ErrInvalidRequest
	}
	svc, err := e.service(ctx, businessID, serviceID)
	if err != nil {
		return nil, err
	}
	return e.GenerateSlots(ctx, businessID, professionalID, date, svc.DurationMins)
}

func (e *Engine) generate(ctx context.Context, businessID, staffID string, day time.Time, durationMins int, settings schedule.Settings) ([]availability.Slot, error) {
	now := e.now()
	dayStart, dayEnd := settings.Day(day)
	buffer := settings.Buffer()
	appts, err := e.store.ListBlocking(ctx, businessID, staffID, dayStart.Add(-buffer), dayEnd)
	if err != nil {
		return nil, fmt.Errorf("booking: list appointments: %w", err)
	}
	busy := make([]availability.Interval, 0, len(appts))
	for _, a := range appts {
		if !a.Blocking() {
			continue
		}
		busy = append(busy, availability.Interval{Start: a.StartTime.In(day.Location()), End: a.EndTime.In(day.Location())})
	}

	slots := availability.Generate(availability.Window{
		DayStart: dayStart,
		DayEnd:   dayEnd,
		Step:     settings.Step(),
		Buffer:   buffer,
		Closed:   settings.ClosedOn(dayStart.Weekday()),
		Now:      now,
	}, time.Duration(durationMins)*time.Minute, busy)
	if slots == nil {
		slots = []availability.Slot{}
	}

	e.metrics.ObserveSlots(e.now().Sub(now))
	return slots, nil
}
