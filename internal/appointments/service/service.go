// Package service implements the appointment lifecycle engine: booking with
// capacity limits, explicit and time-derived status transitions, and the
// query operations built on the same state model.
package service

import (
	"context"
	"strings"
	"time"

	"vetclinic_backend/internal/appointments/domain"
	"vetclinic_backend/internal/appointments/repository"
	"vetclinic_backend/internal/appointments/transport"
	"vetclinic_backend/platform/apperr"
	"vetclinic_backend/platform/sanitize"

	"github.com/google/uuid"
)

// MaxActiveAppointments is the per-patient booking capacity: at most this
// many appointments may be in a non-terminal status at once.
const MaxActiveAppointments = 2

const (
	msgCannotUpdateOrCancel = "cannot update or cancel"
	msgOperationNotAllowed  = "operation not allowed"
	msgVetBookingForbidden  = "veterinarians cannot book appointments as patients"
	msgCapacityExceeded     = "active appointment limit reached"
)

// numberAttempts bounds retries when a generated appointment number collides.
const numberAttempts = 3

// DirectoryUser is the engine's view of a user resolved via the directory.
type DirectoryUser struct {
	ID             int64
	Email          string
	FullName       string
	IsVeterinarian bool
}

// UserDirectory resolves appointment participants. Implementations return
// apperr.NotFound when the id does not resolve.
type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*DirectoryUser, error)
}

// Service is the appointment lifecycle engine.
type Service struct {
	repo      repository.Store
	directory UserDirectory
	loc       *time.Location
	now       func() time.Time
}

// New creates the appointment service. loc is the clinic's timezone used to
// interpret appointment dates and wall-clock times.
func New(repo repository.Store, directory UserDirectory, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:      repo,
		directory: directory,
		loc:       loc,
		now:       time.Now,
	}
}

// Book validates the booking request and persists the appointment in
// WAITING_FOR_APPROVAL. Validation order: sender resolution and type check,
// recipient resolution, then the capacity check (which runs atomically with
// the insert inside the repository).
func (s *Service) Book(ctx context.Context, senderID int64, req transport.BookAppointmentRequest) (*transport.AppointmentResponse, error) {
	sender, err := s.directory.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender.IsVeterinarian {
		return nil, apperr.Forbidden(msgVetBookingForbidden)
	}

	recipient, err := s.directory.FindByID(ctx, req.VeterinarianID)
	if err != nil {
		return nil, err
	}
	if !recipient.IsVeterinarian {
		return nil, apperr.BadRequest("selected user is not a veterinarian")
	}

	date, err := parseDate(req.AppointmentDate)
	if err != nil {
		return nil, err
	}

	pets := make([]repository.Pet, 0, len(req.Pets))
	for _, p := range req.Pets {
		pet, err := petFromRequest(p)
		if err != nil {
			return nil, err
		}
		pets = append(pets, pet)
	}

	appt := &repository.Appointment{
		AppointmentDate: date,
		AppointmentTime: req.AppointmentTime,
		Reason:          sanitize.Text(req.Reason),
		Status:          domain.StatusWaitingForApproval,
		PatientID:       sender.ID,
		VeterinarianID:  recipient.ID,
	}

	var created *repository.Appointment
	for attempt := 0; attempt < numberAttempts; attempt++ {
		appt.AppointmentNo = newAppointmentNumber()
		created, err = s.repo.Book(ctx, appt, pets, MaxActiveAppointments)
		if err == repository.ErrDuplicateNumber {
			continue
		}
		break
	}
	if err != nil {
		if err == repository.ErrCapacityExceeded {
			return nil, apperr.Conflict(msgCapacityExceeded).
				WithDetails(map[string]int{"limit": MaxActiveAppointments})
		}
		return nil, err
	}

	return transport.FromAppointment(created), nil
}

// Update reschedules a pending appointment. The status precondition is
// enforced at write time, so a concurrent approve cannot be overwritten.
func (s *Service) Update(ctx context.Context, id int64, req transport.UpdateAppointmentRequest) (*transport.AppointmentResponse, error) {
	date, err := parseDate(req.AppointmentDate)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.UpdateSchedule(ctx, id, date, req.AppointmentTime, sanitize.Text(req.Reason))
	if err != nil {
		if err == repository.ErrStatusConflict {
			return nil, apperr.Conflict(msgCannotUpdateOrCancel)
		}
		return nil, err
	}
	return transport.FromAppointment(appt), nil
}

// AddPet attaches another pet to a pending appointment.
func (s *Service) AddPet(ctx context.Context, id int64, req transport.PetRequest) (*transport.AppointmentResponse, error) {
	pet, err := petFromRequest(req)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.AddPet(ctx, id, pet)
	if err != nil {
		if err == repository.ErrStatusConflict {
			return nil, apperr.Conflict(msgOperationNotAllowed)
		}
		return nil, err
	}
	return transport.FromAppointment(appt), nil
}

// Cancel moves a pending appointment to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id int64) (*transport.AppointmentResponse, error) {
	return s.transition(ctx, id, domain.Status.CanCancel, domain.StatusCancelled, msgCannotUpdateOrCancel)
}

// Approve moves a pending appointment to APPROVED.
func (s *Service) Approve(ctx context.Context, id int64) (*transport.AppointmentResponse, error) {
	return s.transition(ctx, id, domain.Status.CanApprove, domain.StatusApproved, msgOperationNotAllowed)
}

// Decline moves a pending appointment to NOT_APPROVED.
func (s *Service) Decline(ctx context.Context, id int64) (*transport.AppointmentResponse, error) {
	return s.transition(ctx, id, domain.Status.CanDecline, domain.StatusNotApproved, msgOperationNotAllowed)
}

// transition runs an explicit transition as read, guard, compare-and-set.
// A CAS miss means a concurrent actor changed the status first; the loser
// observes the business error, never a silent overwrite.
func (s *Service) transition(ctx context.Context, id int64, allowed func(domain.Status) bool, to domain.Status, msg string) (*transport.AppointmentResponse, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allowed(appt.Status) {
		return nil, apperr.Conflict(msg)
	}

	ok, err := s.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict(msg)
	}

	appt.Status = to
	return transport.FromAppointment(appt), nil
}

// Delete removes an appointment regardless of status (administrative).
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// RefreshStatus applies the time-derived transition for the appointment,
// if any. It is idempotent and safe to run concurrently with explicit
// transitions: the derived write is a compare-and-set from the observed
// status, so it never clobbers a concurrent approve or decline.
func (s *Service) RefreshStatus(ctx context.Context, id int64) (*transport.AppointmentResponse, error) {
	for attempt := 0; attempt < 3; attempt++ {
		appt, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		start, err := domain.StartTime(appt.AppointmentDate, appt.AppointmentTime, s.loc)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "stored appointment time is invalid", err)
		}

		derived := domain.Derive(appt.Status, start, s.now())
		if derived == appt.Status {
			return transport.FromAppointment(appt), nil
		}

		ok, err := s.repo.UpdateStatus(ctx, id, appt.Status, derived)
		if err != nil {
			return nil, err
		}
		if ok {
			appt.Status = derived
			return transport.FromAppointment(appt), nil
		}
		// Lost the race to a concurrent transition; re-read and re-derive.
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return transport.FromAppointment(appt), nil
}

// GetByID returns a single appointment with its time-derived status applied.
func (s *Service) GetByID(ctx context.Context, id int64) (*transport.AppointmentResponse, error) {
	return s.RefreshStatus(ctx, id)
}

// List returns a page of appointments ordered by date then time, descending.
func (s *Service) List(ctx context.Context, req transport.ListAppointmentsRequest) (*transport.ListAppointmentsResponse, error) {
	res, err := s.repo.List(ctx, repository.ListParams{Page: req.Page, PageSize: req.PageSize})
	if err != nil {
		return nil, err
	}
	return transport.FromListResult(res), nil
}

// Search filters by patient email, veterinarian email, or appointment number.
func (s *Service) Search(ctx context.Context, req transport.SearchAppointmentsRequest) (*transport.ListAppointmentsResponse, error) {
	term := strings.TrimSpace(req.Term)
	if term == "" {
		return nil, apperr.Validation("search term is required")
	}

	res, err := s.repo.Search(ctx, term, repository.ListParams{Page: req.Page, PageSize: req.PageSize})
	if err != nil {
		return nil, err
	}
	return transport.FromListResult(res), nil
}

// Count returns the total appointment count.
func (s *Service) Count(ctx context.Context) (*transport.CountResponse, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &transport.CountResponse{Total: total}, nil
}

// StatusSummary returns appointment counts grouped by status.
func (s *Service) StatusSummary(ctx context.Context) ([]transport.StatusCountResponse, error) {
	summary, err := s.repo.StatusSummary(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]transport.StatusCountResponse, 0, len(summary))
	for _, sc := range summary {
		out = append(out, transport.StatusCountResponse{Status: sc.Status, Count: sc.Count})
	}
	return out, nil
}

// ListForUser returns every appointment where the user participates as
// patient or veterinarian.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]transport.AppointmentResponse, error) {
	items, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return transport.FromAppointments(items), nil
}

// newAppointmentNumber generates a short human-facing identifier. Uniqueness
// is enforced by the database; collisions trigger a retry with a new number.
func newAppointmentNumber() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "AP" + strings.ToUpper(raw[:7])
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid appointment date")
	}
	return date, nil
}

func petFromRequest(req transport.PetRequest) (repository.Pet, error) {
	pet := repository.Pet{
		Name:    sanitize.Text(req.Name),
		Species: sanitize.Text(req.Species),
		Breed:   sanitize.Text(req.Breed),
		Colour:  sanitize.Text(req.Colour),
	}
	if req.BirthDate != nil && *req.BirthDate != "" {
		birth, err := time.Parse(domain.DateLayout, *req.BirthDate)
		if err != nil {
			return repository.Pet{}, apperr.Validation("invalid pet birth date")
		}
		pet.BirthDate = &birth
	}
	return pet, nil
}
