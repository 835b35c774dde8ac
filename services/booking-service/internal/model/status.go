package model

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var allStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal statuses are not transitioned further in normal operation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// InitialStatus reports whether an appointment may be created in status s.
func InitialStatus(s Status) bool {
	return s == StatusConfirmed || s == StatusPending
}

// transitions lists the allowed targets per source status. Staff can currently move an
// appointment between any two statuses; tightening the calendar workflow is a change here only.
var transitions = map[Status][]Status{
	StatusPending:   allStatuses,
	StatusConfirmed: allStatuses,
	StatusCompleted: allStatuses,
	StatusCancelled: allStatuses,
	StatusNoShow:    allStatuses,
}

func CanTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Reopens reports whether moving from -> to puts an appointment back on the calendar,
// which requires its interval to be free again.
func Reopens(from, to Status) bool {
	return from == StatusCancelled && to != StatusCancelled
}
