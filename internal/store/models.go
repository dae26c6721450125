package store

import "time"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusConfirmed Status = "CONFIRMED"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusRequested: {StatusConfirmed},
	StatusConfirmed: {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether a booking in status s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Booking is one appointment request and its confirmation state.
type Booking struct {
	ID           string
	ConfirmToken string
	FullName     string
	Email        string
	Phone        *string
	EventType    string
	Location     *string
	Notes        *string
	StartISO     string
	EndISO       string
	Timezone     string
	Status       Status
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
}

// NewBooking carries the validated fields used to create a booking.
type NewBooking struct {
	ConfirmToken string
	FullName     string
	Email        string
	Phone        *string
	EventType    string
	Location     *string
	Notes        *string
	StartISO     string
	EndISO       string
	Timezone     string
}

// UpdateOutcome tags the result of a conditional status update.
type UpdateOutcome int

const (
	// Updated means this call performed the transition.
	Updated UpdateOutcome = iota + 1
	// AlreadyInTargetState means another writer got there first.
	AlreadyInTargetState
	// NotFound means no booking has the given id.
	NotFound
)

func (o UpdateOutcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case AlreadyInTargetState:
		return "already_in_target_state"
	case NotFound:
		return "not_found"
	}
	return "unknown"
}

// UpdateResult is returned by UpdateStatusIfMatch. Booking is nil for NotFound.
type UpdateResult struct {
	Outcome UpdateOutcome
	Booking *Booking
}

// StringValue dereferences an optional field.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OptionalString maps an empty string to nil.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
