package repository

import (
	"context"
	"errors"
	"time"

	"vetclinic_backend/internal/appointments/domain"
)

// Sentinel errors the service layer translates into business errors.
var (
	// ErrCapacityExceeded is returned by Book when the patient already has
	// the maximum number of active appointments.
	ErrCapacityExceeded = errors.New("active appointment limit reached")
	// ErrStatusConflict is returned when a conditional write finds the
	// appointment in a status that no longer permits the operation.
	ErrStatusConflict = errors.New("appointment status no longer permits this operation")
)

// Appointment is the persisted appointment record. Patient and veterinarian
// emails are joined in for search and transport projection.
type Appointment struct {
	ID                int64
	AppointmentNo     string
	AppointmentDate   time.Time
	AppointmentTime   string
	Reason            string
	Status            domain.Status
	PatientID         int64
	VeterinarianID    int64
	PatientEmail      string
	VeterinarianEmail string
	Pets              []Pet
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Pet is a pet record attached to an appointment.
type Pet struct {
	ID            int64
	AppointmentID int64
	Name          string
	Species       string
	Breed         string
	Colour        string
	BirthDate     *time.Time
}

// ListParams controls pagination.
type ListParams struct {
	Page     int
	PageSize int
}

// ListResult is a page of appointments plus pagination metadata.
type ListResult struct {
	Items      []Appointment
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// StatusCount is one row of the status summary aggregation.
type StatusCount struct {
	Status domain.Status
	Count  int64
}

// Store is the persistence contract the appointment service depends on.
// The pgx implementation lives in this package; tests use in-memory fakes.
type Store interface {
	// Book atomically checks the patient's active-appointment count and
	// inserts the appointment with its pets. Bookings for the same patient
	// are serialized so concurrent requests cannot exceed maxActive.
	Book(ctx context.Context, appt *Appointment, pets []Pet, maxActive int) (*Appointment, error)

	// GetByID returns the appointment with its pets, or apperr.NotFound.
	GetByID(ctx context.Context, id int64) (*Appointment, error)

	// UpdateSchedule overwrites date, time and reason. The write is
	// conditional on the appointment still awaiting approval; a miss
	// yields ErrStatusConflict (or apperr.NotFound if the row is gone).
	UpdateSchedule(ctx context.Context, id int64, date time.Time, wallClock, reason string) (*Appointment, error)

	// AddPet attaches a pet while the appointment still awaits approval.
	AddPet(ctx context.Context, id int64, pet Pet) (*Appointment, error)

	// UpdateStatus performs a compare-and-set transition. It reports false
	// when the appointment was not in the expected from status at write time.
	UpdateStatus(ctx context.Context, id int64, from, to domain.Status) (bool, error)

	// Delete removes the appointment and its pets.
	Delete(ctx context.Context, id int64) error

	List(ctx context.Context, params ListParams) (*ListResult, error)
	Search(ctx context.Context, term string, params ListParams) (*ListResult, error)
	Count(ctx context.Context) (int64, error)
	StatusSummary(ctx context.Context) ([]StatusCount, error)
	ListForUser(ctx context.Context, userID int64) ([]Appointment, error)
}
