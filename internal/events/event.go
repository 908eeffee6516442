// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"vetclinic_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// Event names double as the wire identifiers used by the notification
// outbox (see EncodeWire), so they follow the <Name>Event convention.
const (
	AppointmentBookedName   = "AppointmentBookedEvent"
	AppointmentApprovedName = "AppointmentApprovedEvent"
	AppointmentDeclinedName = "AppointmentDeclinedEvent"
	AppointmentCanceledName = "AppointmentCanceledEvent"
	AppointmentUpdatedName  = "AppointmentUpdatedEvent"
	UserRegisteredName      = "UserRegisteredEvent"
	ReviewPostedName        = "ReviewPostedEvent"

	// Published by the scheduler worker, not by request handlers.
	AppointmentReminderDueName = "AppointmentReminderDueEvent"

	// Internal plumbing event, not part of the domain wire vocabulary.
	NotificationOutboxDueName = "NotificationOutboxDueEvent"
)

// =============================================================================
// Appointment Domain Events
// =============================================================================

// AppointmentBooked is published when a patient books a new appointment.
type AppointmentBooked struct {
	BaseEvent
	AppointmentID  int64  `json:"appointmentId"`
	AppointmentNo  string `json:"appointmentNo"`
	PatientID      int64  `json:"patientId"`
	VeterinarianID int64  `json:"veterinarianId"`
}

func (e AppointmentBooked) EventName() string { return AppointmentBookedName }

// AppointmentApproved is published when a veterinarian approves a pending
// appointment.
type AppointmentApproved struct {
	BaseEvent
	AppointmentID  int64  `json:"appointmentId"`
	AppointmentNo  string `json:"appointmentNo"`
	PatientID      int64  `json:"patientId"`
	VeterinarianID int64  `json:"veterinarianId"`
}

func (e AppointmentApproved) EventName() string { return AppointmentApprovedName }

// AppointmentDeclined is published when a veterinarian declines a pending
// appointment.
type AppointmentDeclined struct {
	BaseEvent
	AppointmentID  int64  `json:"appointmentId"`
	AppointmentNo  string `json:"appointmentNo"`
	PatientID      int64  `json:"patientId"`
	VeterinarianID int64  `json:"veterinarianId"`
}

func (e AppointmentDeclined) EventName() string { return AppointmentDeclinedName }

// AppointmentCanceled is published when a patient cancels an appointment.
// The appointment number travels with the event so the notification can
// reference it after the record is archived.
type AppointmentCanceled struct {
	BaseEvent
	AppointmentID  int64  `json:"appointmentId"`
	AppointmentNo  string `json:"appointmentNo"`
	PatientID      int64  `json:"patientId"`
	VeterinarianID int64  `json:"veterinarianId"`
}

func (e AppointmentCanceled) EventName() string { return AppointmentCanceledName }

// AppointmentUpdated is published when a patient reschedules or edits a
// pending appointment.
type AppointmentUpdated struct {
	BaseEvent
	AppointmentID  int64  `json:"appointmentId"`
	AppointmentNo  string `json:"appointmentNo"`
	PatientID      int64  `json:"patientId"`
	VeterinarianID int64  `json:"veterinarianId"`
}

func (e AppointmentUpdated) EventName() string { return AppointmentUpdatedName }

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserRegistered is published when a new user successfully registers.
type UserRegistered struct {
	BaseEvent
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
}

func (e UserRegistered) EventName() string { return UserRegisteredName }

// =============================================================================
// Review Domain Events
// =============================================================================

// ReviewPosted is published when a patient reviews a veterinarian.
type ReviewPosted struct {
	BaseEvent
	ReviewID       int64 `json:"reviewId"`
	PatientID      int64 `json:"patientId"`
	VeterinarianID int64 `json:"veterinarianId"`
	Stars          int   `json:"stars"`
}

func (e ReviewPosted) EventName() string { return ReviewPostedName }

// =============================================================================
// Scheduler Events
// =============================================================================

// AppointmentReminderDue is published by the scheduler worker when an
// approved appointment's reminder window opens.
type AppointmentReminderDue struct {
	BaseEvent
	AppointmentID  int64     `json:"appointmentId"`
	AppointmentNo  string    `json:"appointmentNo"`
	PatientID      int64     `json:"patientId"`
	VeterinarianID int64     `json:"veterinarianId"`
	StartsAt       time.Time `json:"startsAt"`
}

func (e AppointmentReminderDue) EventName() string { return AppointmentReminderDueName }

// =============================================================================
// Notification Infrastructure Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// record's run time has arrived. The notification module performs the
// actual delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return NotificationOutboxDueName }
