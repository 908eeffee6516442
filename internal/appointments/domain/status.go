// Package domain holds the appointment status machine. It is pure logic
// with no persistence or transport concerns so it can be tested in isolation.
package domain

import "time"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusWaitingForApproval Status = "WAITING_FOR_APPROVAL"
	StatusApproved           Status = "APPROVED"
	StatusUpComing           Status = "UP_COMING"
	StatusOnGoing            Status = "ON_GOING"
	StatusCompleted          Status = "COMPLETED"
	StatusCancelled          Status = "CANCELLED"
	StatusNotApproved        Status = "NOT_APPROVED"
)

// AppointmentDuration is the fixed length of a clinic visit.
const AppointmentDuration = 2 * time.Hour

// AllStatuses lists every valid status, used for validation and summaries.
var AllStatuses = []Status{
	StatusWaitingForApproval,
	StatusApproved,
	StatusUpComing,
	StatusOnGoing,
	StatusCompleted,
	StatusCancelled,
	StatusNotApproved,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s permits no further transitions.
// Terminal appointments do not count toward the patient booking limit.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNotApproved:
		return true
	}
	return false
}

// AllowsPatientMutation reports whether date/time/reason/pets may still be
// changed. Only appointments awaiting the veterinarian's decision are open.
func (s Status) AllowsPatientMutation() bool {
	return s == StatusWaitingForApproval
}

// CanApprove reports whether an explicit approve is valid from s.
func (s Status) CanApprove() bool {
	return s == StatusWaitingForApproval
}

// CanDecline reports whether an explicit decline is valid from s.
func (s Status) CanDecline() bool {
	return s == StatusWaitingForApproval
}

// CanCancel reports whether the patient may still cancel. Cancellation is
// only meaningful before the veterinarian acts.
func (s Status) CanCancel() bool {
	return s == StatusWaitingForApproval
}

// Derive computes the time-derived status for an appointment given its
// scheduled start and the current moment. It is idempotent: applying it to
// its own result yields the same status until the clock moves past the
// next boundary.
//
// Derivation never replaces an explicit decision, only advances it:
//
//	WAITING_FOR_APPROVAL -> NOT_APPROVED  once the start has passed unapproved
//	APPROVED             -> UP_COMING     while the start is still ahead
//	UP_COMING            -> ON_GOING      inside the (start, start+duration) window
//	ON_GOING             -> COMPLETED     once the visit window has ended
func Derive(current Status, start, now time.Time) Status {
	end := start.Add(AppointmentDuration)

	switch current {
	case StatusWaitingForApproval:
		if now.After(start) {
			return StatusNotApproved
		}
		return current

	case StatusApproved:
		if now.Before(start) {
			return StatusUpComing
		}
		// Start already reached without an intermediate refresh; apply
		// the in-window rules directly.
		fallthrough

	case StatusUpComing:
		if !now.Before(end) {
			return StatusCompleted
		}
		if now.After(start) {
			return StatusOnGoing
		}
		return StatusUpComing

	case StatusOnGoing:
		if !now.Before(end) {
			return StatusCompleted
		}
		return StatusOnGoing
	}

	// Terminal statuses derive to themselves.
	return current
}
