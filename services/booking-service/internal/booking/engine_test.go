package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/schedule"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/timeutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenant        = "b0000000-0000-0000-0000-000000000001"
	otherTenant   = "b0000000-0000-0000-0000-000000000002"
	staffA        = "5a000000-0000-0000-0000-00000000000a"
	staffB        = "5a000000-0000-0000-0000-00000000000b"
	inactiveStaff = "5a000000-0000-0000-0000-0000000000ff"
	haircut       = "5e000000-0000-0000-0000-000000000030"
	coloring      = "5e000000-0000-0000-0000-000000000120"
	foreignSvc    = "5e000000-0000-0000-0000-0000000000ee"
	client        = "c0000000-0000-0000-0000-000000000001"
)

// testDay is a Wednesday.
var testDay = time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 1, 28, h, m, 0, 0, time.UTC)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, settings schedule.Settings, opts ...func(*Options)) (*Engine, *memStore) {
	t.Helper()
	store := newMemStore()
	store.services[haircut] = model.Service{ID: haircut, BusinessID: tenant, Title: "Haircut", Price: "25.00", DurationMins: 30}
	store.services[coloring] = model.Service{ID: coloring, BusinessID: tenant, Title: "Coloring", Price: "90.00", DurationMins: 120}
	store.services[foreignSvc] = model.Service{ID: foreignSvc, BusinessID: otherTenant, Title: "Other", DurationMins: 30}
	store.staff[staffA] = model.Professional{ID: staffA, BusinessID: tenant, Name: "Ana", IsActive: true}
	store.staff[staffB] = model.Professional{ID: staffB, BusinessID: tenant, Name: "Bea", IsActive: true}
	store.staff[inactiveStaff] = model.Professional{ID: inactiveStaff, BusinessID: tenant, Name: "Cid"}

	o := Options{
		Logger: quietLogger(),
		Now:    func() time.Time { return testDay.Add(-16 * time.Hour) },
	}
	for _, fn := range opts {
		fn(&o)
	}
	return NewEngine(store, schedule.NewStaticProvider(settings), o), store
}

func seed(store *memStore, id, staffID string, start, end time.Time, status model.Status) {
	store.appointments[id] = model.Appointment{
		ID: id, BusinessID: tenant, StaffID: staffID, ServiceID: haircut,
		StartTime: start, EndTime: end, Status: status,
	}
}

func slotAt(t *testing.T, slots []availability.Slot, label string) availability.Slot {
	t.Helper()
	for _, s := range slots {
		if s.Time == label {
			return s
		}
	}
	t.Fatalf("slot %s not found", label)
	return availability.Slot{}
}

func bookReq(staffID, slot string) Request {
	return Request{TenantID: tenant, ServiceID: haircut, ProfessionalID: staffID, Date: testDay, TimeSlot: slot, ContactID: client}
}

func TestGenerateSlotsSalonDay(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	seed(store, "a1", staffA, at(10, 0), at(11, 0), model.StatusConfirmed)

	slots, err := engine.GenerateSlots(context.Background(), tenant, staffA, testDay, 30)
	require.NoError(t, err)

	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "18:30", slots[len(slots)-1].Time)
	assert.True(t, slotAt(t, slots, "09:30").Available)
	assert.Equal(t, availability.ReasonBooked, slotAt(t, slots, "10:00").Reason)
	assert.Equal(t, availability.ReasonBuffer, slotAt(t, slots, "11:00").Reason)
	assert.True(t, slotAt(t, slots, "11:30").Available)
}

func TestGenerateSlotsIgnoresCancelledAndOtherStaff(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	seed(store, "a1", staffA, at(10, 0), at(11, 0), model.StatusCancelled)
	seed(store, "b1", staffB, at(12, 0), at(13, 0), model.StatusConfirmed)

	slots, err := engine.GenerateSlots(context.Background(), tenant, staffA, testDay, 30)
	require.NoError(t, err)
	for _, s := range slots {
		assert.True(t, s.Available, "slot %s should be free", s.Time)
	}
}

func TestGenerateSlotsAppointmentBeforeOpening(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	seed(store, "early", staffA, at(8, 0), at(8, 55), model.StatusConfirmed)

	slots, err := engine.GenerateSlots(context.Background(), tenant, staffA, testDay, 30)
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonBuffer, slotAt(t, slots, "09:00").Reason)
	assert.True(t, slotAt(t, slots, "09:30").Available)
}

func TestGenerateSlotsBoundary(t *testing.T) {
	engine, _ := newTestEngine(t, schedule.Defaults())
	ctx := context.Background()

	slots, err := engine.GenerateSlots(ctx, tenant, staffA, testDay, 120)
	require.NoError(t, err)
	last := slots[len(slots)-1]
	assert.Equal(t, "17:00", last.Time)
	assert.True(t, last.Available)

	slots, err = engine.GenerateSlots(ctx, tenant, staffA, testDay, 121)
	require.NoError(t, err)
	assert.Equal(t, "16:30", slots[len(slots)-1].Time)

	slots, err = engine.GenerateSlots(ctx, tenant, staffA, testDay, 11*60)
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = engine.GenerateSlots(ctx, tenant, staffA, testDay, 0)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSlotsIsIdempotent(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	seed(store, "a1", staffA, at(13, 0), at(14, 30), model.StatusPending)

	first, err := engine.GenerateSlots(context.Background(), tenant, staffA, testDay, 45)
	require.NoError(t, err)
	second, err := engine.GenerateSlots(context.Background(), tenant, staffA, testDay, 45)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateSlotsClosedAndPast(t *testing.T) {
	closed := schedule.Defaults()
	closed.ClosedWeekdays = []time.Weekday{time.Wednesday}
	engine, _ := newTestEngine(t, closed)

	slots, err := engine.GenerateSlots(context.Background(), tenant, staffA, testDay, 30)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.Equal(t, availability.ReasonClosed, s.Reason)
	}

	engine, _ = newTestEngine(t, schedule.Defaults(), func(o *Options) {
		o.Now = func() time.Time { return at(12, 10) }
	})
	slots, err = engine.GenerateSlots(context.Background(), tenant, staffA, testDay, 30)
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonClosed, slotAt(t, slots, "12:00").Reason)
	assert.True(t, slotAt(t, slots, "12:30").Available)
}

func TestGenerateSlotsErrors(t *testing.T) {
	engine, _ := newTestEngine(t, schedule.Defaults())
	ctx := context.Background()

	_, err := engine.GenerateSlots(ctx, tenant, inactiveStaff, testDay, 30)
	assert.ErrorIs(t, err, ErrProfessionalInactive)

	_, err = engine.GenerateSlots(ctx, otherTenant, staffA, testDay, 30)
	assert.ErrorIs(t, err, ErrProfessionalInactive)

	_, err = engine.GenerateSlotsForService(ctx, tenant, staffA, foreignSvc, testDay)
	assert.ErrorIs(t, err, ErrServiceNotFound)

	_, err = engine.GenerateSlots(ctx, "", staffA, testDay, 30)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	slots, err := engine.GenerateSlotsForService(ctx, tenant, staffA, coloring, testDay)
	require.NoError(t, err)
	assert.Equal(t, "17:00", slots[len(slots)-1].Time)
}

func TestCreateAppointment(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults(), func(o *Options) {
		o.NewID = func() string { return "a0000000-0000-0000-0000-000000000001" }
	})
	req := bookReq(staffA, "10:00")
	req.Phone = "+351911111111"

	id, err := engine.CreateAppointment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "a0000000-0000-0000-0000-000000000001", id)

	appt := store.appointments[id]
	assert.Equal(t, model.StatusConfirmed, appt.Status)
	assert.True(t, appt.StartTime.Equal(at(10, 0)))
	assert.True(t, appt.EndTime.Equal(at(10, 30)))
	assert.Equal(t, "+351911111111", store.phones[client])
	require.Len(t, store.events, 1)
	assert.Equal(t, outbox.EventAppointmentBooked, store.events[0].EventType)
	assert.Equal(t, id, store.events[0].AggregateID)
}

func TestCreateAppointmentPendingAndTimezone(t *testing.T) {
	settings := schedule.Defaults()
	settings.Timezone = "America/New_York"
	engine, store := newTestEngine(t, settings)

	req := bookReq(staffA, "09:00")
	req.InitialStatus = model.StatusPending
	id, err := engine.CreateAppointment(context.Background(), req)
	require.NoError(t, err)

	appt := store.appointments[id]
	assert.Equal(t, model.StatusPending, appt.Status)
	// New York is UTC-5 in January.
	assert.True(t, appt.StartTime.Equal(at(14, 0)), "got %s", appt.StartTime.UTC())

	req.InitialStatus = model.StatusCompleted
	req.TimeSlot = "11:00"
	_, err = engine.CreateAppointment(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCreateAppointmentErrors(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	ctx := context.Background()

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown service", Request{TenantID: tenant, ServiceID: "5e000000-0000-0000-0000-000000000999", ProfessionalID: staffA, Date: testDay, TimeSlot: "10:00"}, ErrServiceNotFound},
		{"service of another tenant", Request{TenantID: tenant, ServiceID: foreignSvc, ProfessionalID: staffA, Date: testDay, TimeSlot: "10:00"}, ErrServiceNotFound},
		{"inactive professional", bookReq(inactiveStaff, "10:00"), ErrProfessionalInactive},
		{"bad slot", bookReq(staffA, "25:00"), ErrInvalidRequest},
		{"malformed id", Request{TenantID: tenant, ServiceID: "haircut", ProfessionalID: staffA, Date: testDay, TimeSlot: "10:00"}, ErrInvalidRequest},
		{"missing tenant", Request{ServiceID: haircut, ProfessionalID: staffA, Date: testDay, TimeSlot: "10:00"}, ErrInvalidRequest},
		{"missing date", Request{TenantID: tenant, ServiceID: haircut, ProfessionalID: staffA, TimeSlot: "10:00"}, ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.CreateAppointment(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, store.appointments)
}

func TestConcurrentIdenticalBookings(t *testing.T) {
	for _, n := range []int{2, 25} {
		t.Run(fmt.Sprintf("%d callers", n), func(t *testing.T) {
			engine, store := newTestEngine(t, schedule.Defaults())

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				ids     []string
				taken   int
				unknown []error
			)
			start := make(chan struct{})
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					id, err := engine.CreateAppointment(context.Background(), bookReq(staffA, "15:00"))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ids = append(ids, id)
					case errors.Is(err, ErrSlotTaken):
						taken++
					default:
						unknown = append(unknown, err)
					}
				}()
			}
			close(start)
			wg.Wait()

			require.Empty(t, unknown)
			assert.Len(t, ids, 1)
			assert.Equal(t, n-1, taken)
			assert.Len(t, store.blocking(), 1)
		})
	}
}

func TestNoOverlapUnderRandomLoad(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	rng := rand.New(rand.NewPCG(7, 11))
	staff := []string{staffA, staffB}
	services := []string{haircut, coloring}

	type attempt struct {
		req    Request
		cancel bool
	}
	var attempts []attempt
	for i := 0; i < 300; i++ {
		minute := rng.IntN(10*60/5) * 5
		attempts = append(attempts, attempt{
			req: Request{
				TenantID:       tenant,
				ServiceID:      services[rng.IntN(len(services))],
				ProfessionalID: staff[rng.IntN(len(staff))],
				Date:           testDay,
				TimeSlot:       timeutil.FormatClock(at(9, 0).Add(time.Duration(minute) * time.Minute)),
			},
			cancel: rng.IntN(5) == 0,
		})
	}

	var wg sync.WaitGroup
	for _, a := range attempts {
		wg.Add(1)
		go func(a attempt) {
			defer wg.Done()
			id, err := engine.CreateAppointment(context.Background(), a.req)
			if err != nil {
				if !errors.Is(err, ErrSlotTaken) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if a.cancel {
				if _, err := engine.CancelAppointment(context.Background(), tenant, id, "random"); err != nil {
					t.Errorf("cancel: %v", err)
				}
			}
		}(a)
	}
	wg.Wait()

	blocking := store.blocking()
	require.NotEmpty(t, blocking)
	for i := range blocking {
		for j := i + 1; j < len(blocking); j++ {
			a, b := blocking[i], blocking[j]
			if a.StaffID != b.StaffID {
				continue
			}
			assert.False(t, timeutil.Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime),
				"overlap: %s-%s and %s-%s", a.StartTime, a.EndTime, b.StartTime, b.EndTime)
		}
	}
}

func TestBufferOnlyAppliesToSlotGeneration(t *testing.T) {
	settings := schedule.Defaults()
	settings.StepMinutes = 5
	engine, store := newTestEngine(t, settings)
	seed(store, "a1", staffA, at(13, 0), at(14, 0), model.StatusConfirmed)
	ctx := context.Background()

	slots, err := engine.GenerateSlots(ctx, tenant, staffA, testDay, 30)
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonBuffer, slotAt(t, slots, "14:05").Reason)

	conflict, err := engine.HasConflict(ctx, tenant, staffA, at(14, 5), at(14, 35))
	require.NoError(t, err)
	assert.False(t, conflict)

	_, err = engine.CreateAppointment(ctx, bookReq(staffA, "14:05"))
	assert.NoError(t, err)
}

func TestSlotCommitConsistency(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	seed(store, "a1", staffA, at(10, 0), at(11, 0), model.StatusConfirmed)
	ctx := context.Background()

	slots, err := engine.GenerateSlots(ctx, tenant, staffA, testDay, 30)
	require.NoError(t, err)
	for _, s := range slots {
		if s.Reason != availability.ReasonBooked {
			continue
		}
		_, err := engine.CreateAppointment(ctx, bookReq(staffA, s.Time))
		assert.ErrorIs(t, err, ErrSlotTaken, "slot %s", s.Time)
	}

	// A slot reported free goes stale when someone else books it first.
	require.True(t, slotAt(t, slots, "16:00").Available)
	_, err = engine.CreateAppointment(ctx, bookReq(staffA, "16:00"))
	require.NoError(t, err)
	_, err = engine.CreateAppointment(ctx, bookReq(staffA, "16:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCancelFreesIntervalAndUncancelIsChecked(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	ctx := context.Background()

	first, err := engine.CreateAppointment(ctx, bookReq(staffA, "10:00"))
	require.NoError(t, err)

	cancelled, err := engine.CancelAppointment(ctx, tenant, first, "client called")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "client called", cancelled.CancelReason)

	conflict, err := engine.HasConflict(ctx, tenant, staffA, at(10, 0), at(10, 30))
	require.NoError(t, err)
	assert.False(t, conflict)

	second, err := engine.CreateAppointment(ctx, bookReq(staffA, "10:00"))
	require.NoError(t, err)

	// Adjacent booking: no buffer at the conflict layer.
	_, err = engine.CreateAppointment(ctx, bookReq(staffA, "10:30"))
	require.NoError(t, err)

	_, err = engine.UpdateStatus(ctx, tenant, first, model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Equal(t, model.StatusCancelled, store.appointments[first].Status)

	_, err = engine.CancelAppointment(ctx, tenant, second, "")
	require.NoError(t, err)
	reopened, err := engine.UpdateStatus(ctx, tenant, first, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Nil(t, reopened.CancelledAt)
	assert.Empty(t, reopened.CancelReason)
}

func TestCancelTwiceKeepsFirstCancellation(t *testing.T) {
	engine, _ := newTestEngine(t, schedule.Defaults())
	ctx := context.Background()

	id, err := engine.CreateAppointment(ctx, bookReq(staffA, "10:00"))
	require.NoError(t, err)
	first, err := engine.CancelAppointment(ctx, tenant, id, "first")
	require.NoError(t, err)
	second, err := engine.CancelAppointment(ctx, tenant, id, "second")
	require.NoError(t, err)
	assert.Equal(t, first.CancelledAt, second.CancelledAt)
	assert.Equal(t, "first", second.CancelReason)
}

func TestUpdateStatus(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	ctx := context.Background()

	id, err := engine.CreateAppointment(ctx, bookReq(staffA, "10:00"))
	require.NoError(t, err)

	for _, s := range []model.Status{model.StatusConfirmed, model.StatusCompleted, model.StatusNoShow, model.StatusPending} {
		appt, err := engine.UpdateStatus(ctx, tenant, id, s)
		require.NoError(t, err)
		assert.Equal(t, s, appt.Status)
	}
	last := store.events[len(store.events)-1]
	assert.Equal(t, outbox.EventAppointmentStatusChanged, last.EventType)
	assert.Contains(t, string(last.Payload), `"previous_status":"no_show"`)

	_, err = engine.UpdateStatus(ctx, tenant, id, model.Status("bogus"))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = engine.UpdateStatus(ctx, tenant, "a0000000-0000-0000-0000-0000000000ff", model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = engine.UpdateStatus(ctx, otherTenant, id, model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCompletionRecordsServicePrice(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	ctx := context.Background()

	id, err := engine.CreateAppointment(ctx, bookReq(staffA, "10:00"))
	require.NoError(t, err)

	appt, err := engine.UpdateStatus(ctx, tenant, id, model.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, appt.TotalAmount)
	assert.Equal(t, "25.00", *appt.TotalAmount)
	last := store.events[len(store.events)-1]
	assert.Contains(t, string(last.Payload), `"total_amount":"25.00"`)

	store.mu.Lock()
	svc := store.services[haircut]
	svc.Price = "30.00"
	store.services[haircut] = svc
	store.mu.Unlock()

	_, err = engine.UpdateStatus(ctx, tenant, id, model.StatusConfirmed)
	require.NoError(t, err)
	appt, err = engine.UpdateStatus(ctx, tenant, id, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, "25.00", *appt.TotalAmount, "an amount already set is kept")

	other, err := engine.CreateAppointment(ctx, bookReq(staffB, "10:00"))
	require.NoError(t, err)
	appt, err = engine.UpdateStatus(ctx, tenant, other, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Nil(t, appt.TotalAmount)
}

func TestReschedule(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	ctx := context.Background()

	id, err := engine.CreateAppointment(ctx, Request{TenantID: tenant, ServiceID: coloring, ProfessionalID: staffA, Date: testDay, TimeSlot: "10:00"})
	require.NoError(t, err)
	_, err = engine.CreateAppointment(ctx, bookReq(staffA, "14:00"))
	require.NoError(t, err)

	_, err = engine.Reschedule(ctx, tenant, id, testDay, "13:00")
	assert.ErrorIs(t, err, ErrSlotTaken)

	moved, err := engine.Reschedule(ctx, tenant, id, testDay, "11:00")
	require.NoError(t, err, "overlapping its own old interval is fine")
	assert.True(t, moved.StartTime.Equal(at(11, 0)))
	assert.True(t, moved.EndTime.Equal(at(13, 0)))

	nextDay := testDay.AddDate(0, 0, 1)
	moved, err = engine.Reschedule(ctx, tenant, id, nextDay, "09:00")
	require.NoError(t, err)
	assert.Equal(t, 29, moved.StartTime.Day())
	assert.Equal(t, outbox.EventAppointmentRescheduled, store.events[len(store.events)-1].EventType)

	_, err = engine.CancelAppointment(ctx, tenant, id, "")
	require.NoError(t, err)
	_, err = engine.Reschedule(ctx, tenant, id, testDay, "16:00")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestPhoneFailureDoesNotAbortBooking(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	store.phoneErr = errors.New("contacts table locked")

	req := bookReq(staffA, "12:00")
	req.Phone = "+351922222222"
	id, err := engine.CreateAppointment(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, store.appointments, id)
	assert.Empty(t, store.phones)
}

func TestListDay(t *testing.T) {
	engine, store := newTestEngine(t, schedule.Defaults())
	seed(store, "a1", staffA, at(10, 0), at(11, 0), model.StatusConfirmed)
	seed(store, "a2", staffA, at(12, 0), at(13, 0), model.StatusCancelled)
	seed(store, "b1", staffB, at(9, 0), at(9, 30), model.StatusPending)
	seed(store, "next", staffA, at(10, 0).AddDate(0, 0, 1), at(11, 0).AddDate(0, 0, 1), model.StatusConfirmed)
	ctx := context.Background()

	appts, err := engine.ListDay(ctx, tenant, staffA, testDay)
	require.NoError(t, err)
	assert.Len(t, appts, 2)

	appts, err = engine.ListDay(ctx, tenant, "", testDay)
	require.NoError(t, err)
	assert.Len(t, appts, 3)

	appts, err = engine.ListDay(ctx, otherTenant, "", testDay)
	require.NoError(t, err)
	assert.NotNil(t, appts)
	assert.Empty(t, appts)
}

func TestWritesNotifyCalendar(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, calendar.DefaultChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	engine, _ := newTestEngine(t, schedule.Defaults(), func(o *Options) {
		o.Calendar = calendar.NewNotifier(rdb, "")
	})

	id, err := engine.CreateAppointment(ctx, bookReq(staffA, "10:00"))
	require.NoError(t, err)
	_, err = engine.Reschedule(ctx, tenant, id, testDay.AddDate(0, 0, 1), "11:00")
	require.NoError(t, err)

	var changes []calendar.Change
	for len(changes) < 2 {
		select {
		case msg := <-sub.Channel():
			var c calendar.Change
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &c))
			changes = append(changes, c)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 2 calendar changes, got %d", len(changes))
		}
	}
	assert.Equal(t, []string{"2026-01-28"}, changes[0].Dates)
	assert.Equal(t, staffA, changes[0].StaffID)
	assert.ElementsMatch(t, []string{"2026-01-28", "2026-01-29"}, changes[1].Dates)
	assert.Equal(t, int64(2), changes[1].Version)
}

func TestSlotsRecomputedAfterConcurrentWrite(t *testing.T) {
	const pendingCancel = "a0000000-0000-0000-0000-000000000001"
	engine, store := newTestEngine(t, schedule.Defaults())
	ctx := context.Background()
	seed(store, pendingCancel, staffA, at(10, 0), at(10, 30), model.StatusConfirmed)

	store.afterList = func() {
		_, err := engine.CancelAppointment(ctx, tenant, pendingCancel, "client called")
		require.NoError(t, err)
	}
	slots, err := engine.GenerateSlots(ctx, tenant, staffA, testDay, 30)
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonBooked, slotAt(t, slots, "10:00").Reason, "read happened before the cancel")

	slots, err = engine.GenerateSlots(ctx, tenant, staffA, testDay, 30)
	require.NoError(t, err)
	slot := slotAt(t, slots, "10:00")
	assert.True(t, slot.Available)
	assert.Equal(t, availability.ReasonNone, slot.Reason)

	_, err = engine.CreateAppointment(ctx, bookReq(staffA, "10:00"))
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls)
}
