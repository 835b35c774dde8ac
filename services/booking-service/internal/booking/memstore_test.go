package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/timeutil"
)

// memStore keeps appointments in memory and rejects overlapping writes atomically,
// the way the exclusion constraint does.
type memStore struct {
	mu           sync.Mutex
	services     map[string]model.Service
	staff        map[string]model.Professional
	appointments map[string]model.Appointment
	phones       map[string]string
	events       []outbox.Event
	phoneErr     error
	listCalls    int
	afterList    func()
}

func newMemStore() *memStore {
	return &memStore{
		services:     map[string]model.Service{},
		staff:        map[string]model.Professional{},
		appointments: map[string]model.Appointment{},
		phones:       map[string]string{},
	}
}

func (s *memStore) GetService(_ context.Context, businessID, serviceID string) (model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[serviceID]
	if !ok || svc.BusinessID != businessID {
		return model.Service{}, pgx.ErrNoRows
	}
	return svc, nil
}

func (s *memStore) GetProfessional(_ context.Context, businessID, staffID string) (model.Professional, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.staff[staffID]
	if !ok || p.BusinessID != businessID {
		return model.Professional{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *memStore) ListBlocking(_ context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error) {
	s.mu.Lock()
	s.listCalls++
	var out []model.Appointment
	for _, a := range s.appointments {
		if a.BusinessID == businessID && a.StaffID == staffID && a.Blocking() && !a.StartTime.After(to) && a.EndTime.After(from) {
			out = append(out, a)
		}
	}
	hook := s.afterList
	s.afterList = nil
	s.mu.Unlock()

	// runs once, after the read, to interleave a write with slot generation
	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *memStore) ListDay(_ context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		if a.BusinessID != businessID || (staffID != "" && a.StaffID != staffID) {
			continue
		}
		if !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) overlapLocked(businessID, staffID string, start, end time.Time, excludeID string) bool {
	for _, a := range s.appointments {
		if a.ID == excludeID || a.BusinessID != businessID || a.StaffID != staffID || !a.Blocking() {
			continue
		}
		if timeutil.Overlaps(start, end, a.StartTime, a.EndTime) {
			return true
		}
	}
	return false
}

func (s *memStore) HasOverlap(_ context.Context, businessID, staffID string, start, end time.Time, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlapLocked(businessID, staffID, start, end, excludeID), nil
}

func (s *memStore) CreateAppointment(_ context.Context, appt model.Appointment, evt outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlapLocked(appt.BusinessID, appt.StaffID, appt.StartTime, appt.EndTime, "") {
		return storage.ErrOverlap
	}
	if _, dup := s.appointments[appt.ID]; dup {
		return errors.New("duplicate id")
	}
	s.appointments[appt.ID] = appt
	s.events = append(s.events, evt)
	return nil
}

func (s *memStore) UpdateAppointment(_ context.Context, businessID, appointmentID string, mutate storage.Mutation) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.appointments[appointmentID]
	if !ok || cur.BusinessID != businessID {
		return model.Appointment{}, pgx.ErrNoRows
	}
	next, evt, err := mutate(cur)
	if err != nil {
		return model.Appointment{}, err
	}
	if next.Blocking() && s.overlapLocked(businessID, next.StaffID, next.StartTime, next.EndTime, next.ID) {
		return model.Appointment{}, storage.ErrOverlap
	}
	s.appointments[appointmentID] = next
	s.events = append(s.events, evt)
	return next, nil
}

func (s *memStore) GetAppointment(_ context.Context, businessID, appointmentID string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[appointmentID]
	if !ok || a.BusinessID != businessID {
		return model.Appointment{}, pgx.ErrNoRows
	}
	return a, nil
}

func (s *memStore) UpdateContactPhone(_ context.Context, _, contactID, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phoneErr != nil {
		return false, s.phoneErr
	}
	s.phones[contactID] = phone
	return true, nil
}

func (s *memStore) blocking() []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		if a.Blocking() {
			out = append(out, a)
		}
	}
	return out
}
