// Package repository provides PostgreSQL persistence for appointments.
package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"vetclinic_backend/internal/appointments/domain"
	"vetclinic_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateNumber is returned by Book when the generated appointment
// number collides with an existing one; the caller retries with a new number.
var ErrDuplicateNumber = errors.New("appointment number already exists")

// bookingLockNS namespaces the per-patient advisory lock keys so they
// cannot collide with other advisory locks in the database.
const bookingLockNS int64 = 0x76657463 << 16 // "vetc"

const uniqueViolationCode = "23505"

const appointmentColumns = `
	a.id, a.appointment_no, a.appointment_date,
	to_char(a.appointment_time, 'HH24:MI'),
	a.reason, a.status, a.patient_id, a.veterinarian_id,
	up.email, uv.email,
	a.created_at, a.updated_at`

const appointmentJoins = `
	FROM appointments a
	JOIN users up ON up.id = a.patient_id
	JOIN users uv ON uv.id = a.veterinarian_id`

// Repository is the pgx-backed implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new appointments repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// Book inserts the appointment and its pets inside a transaction that holds
// a per-patient advisory lock around the active-count check, so two
// concurrent bookings by the same patient cannot both pass the limit.
func (r *Repository) Book(ctx context.Context, appt *Appointment, pets []Pet, maxActive int) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin booking transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bookingLockNS+appt.PatientID); err != nil {
		return nil, fmt.Errorf("failed to acquire booking lock: %w", err)
	}

	var active int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE patient_id = $1
		  AND status NOT IN ($2, $3, $4)`,
		appt.PatientID,
		domain.StatusCompleted, domain.StatusCancelled, domain.StatusNotApproved,
	).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("failed to count active appointments: %w", err)
	}
	if active >= maxActive {
		return nil, ErrCapacityExceeded
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(appointment_no, appointment_date, appointment_time, reason, status, patient_id, veterinarian_id)
		VALUES ($1, $2, $3::time, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		appt.AppointmentNo, appt.AppointmentDate, appt.AppointmentTime,
		appt.Reason, appt.Status, appt.PatientID, appt.VeterinarianID,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrDuplicateNumber
		}
		return nil, fmt.Errorf("failed to insert appointment: %w", err)
	}

	for i := range pets {
		pet := &pets[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO pets (appointment_id, name, species, breed, colour, birth_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			appt.ID, pet.Name, pet.Species, pet.Breed, pet.Colour, pet.BirthDate,
		).Scan(&pet.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert pet: %w", err)
		}
		pet.AppointmentID = appt.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}

	return r.GetByID(ctx, appt.ID)
}

// GetByID returns the appointment with its pets.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+appointmentColumns+appointmentJoins+` WHERE a.id = $1`, id)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if err := r.loadPets(ctx, []*Appointment{appt}); err != nil {
		return nil, err
	}
	return appt, nil
}

// UpdateSchedule overwrites date, time and reason, conditional on the
// appointment still being WAITING_FOR_APPROVAL at write time.
func (r *Repository) UpdateSchedule(ctx context.Context, id int64, date time.Time, wallClock, reason string) (*Appointment, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $2, appointment_time = $3::time, reason = $4, updated_at = now()
		WHERE id = $1 AND status = $5`,
		id, date, wallClock, reason, domain.StatusWaitingForApproval,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.classifyMiss(ctx, id)
	}

	return r.GetByID(ctx, id)
}

// AddPet attaches a pet, conditional on the appointment still being
// WAITING_FOR_APPROVAL. The status check and insert share a transaction
// with the appointment row locked.
func (r *Repository) AddPet(ctx context.Context, id int64, pet Pet) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin add-pet transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status domain.Status
	err = tx.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, fmt.Errorf("failed to lock appointment: %w", err)
	}
	if !status.AllowsPatientMutation() {
		return nil, ErrStatusConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pets (appointment_id, name, species, breed, colour, birth_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, pet.Name, pet.Species, pet.Breed, pet.Colour, pet.BirthDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pet: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE appointments SET updated_at = now() WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to touch appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit add-pet: %w", err)
	}

	return r.GetByID(ctx, id)
}

// UpdateStatus performs a compare-and-set transition. The expected from
// status is re-checked at write time so concurrent transitions cannot both
// succeed.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update appointment status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the appointment; pets cascade via the schema.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

// List returns a page ordered by appointment date then time, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	return r.page(ctx, params, "", nil)
}

// Search filters by case-insensitive substring match against patient email,
// veterinarian email, or appointment number.
func (r *Repository) Search(ctx context.Context, term string, params ListParams) (*ListResult, error) {
	where := `WHERE up.email ILIKE $1 OR uv.email ILIKE $1 OR a.appointment_no ILIKE $1`
	return r.page(ctx, params, where, []any{"%" + escapeLike(term) + "%"})
}

// escapeLike escapes LIKE metacharacters so the search term matches as a
// literal substring instead of a pattern.
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}

// Count returns the total number of appointments.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return total, nil
}

// StatusSummary returns appointment counts grouped by status.
func (r *Repository) StatusSummary(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM appointments
		GROUP BY status
		ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate statuses: %w", err)
	}
	defer rows.Close()

	summary := make([]StatusCount, 0, len(domain.AllStatuses))
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		summary = append(summary, sc)
	}
	return summary, rows.Err()
}

// ListForUser returns every appointment where the user is patient or
// veterinarian, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+appointmentColumns+appointmentJoins+`
		WHERE a.patient_id = $1 OR a.veterinarian_id = $1
		ORDER BY a.appointment_date DESC, a.appointment_time DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user appointments: %w", err)
	}
	defer rows.Close()

	appts, err := collectAppointments(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadPets(ctx, refs(appts)); err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *Repository) page(ctx context.Context, params ListParams, where string, args []any) (*ListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	countQuery := `SELECT COUNT(*)` + appointmentJoins + ` ` + where
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	listArgs := append(append([]any{}, args...), params.PageSize, offset)
	listQuery := fmt.Sprintf(
		`SELECT%s%s %s ORDER BY a.appointment_date DESC, a.appointment_time DESC LIMIT $%d OFFSET $%d`,
		appointmentColumns, appointmentJoins, where, len(args)+1, len(args)+2,
	)

	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	appts, err := collectAppointments(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadPets(ctx, refs(appts)); err != nil {
		return nil, err
	}

	return &ListResult{
		Items:      appts,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(params.PageSize))),
	}, nil
}

// classifyMiss distinguishes a vanished row from a status precondition miss
// after a conditional write affected zero rows.
func (r *Repository) classifyMiss(ctx context.Context, id int64) error {
	var status domain.Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("appointment not found")
	}
	if err != nil {
		return fmt.Errorf("failed to re-read appointment: %w", err)
	}
	return ErrStatusConflict
}

func (r *Repository) loadPets(ctx context.Context, appts []*Appointment) error {
	if len(appts) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(appts))
	byID := make(map[int64]*Appointment, len(appts))
	for _, a := range appts {
		ids = append(ids, a.ID)
		byID[a.ID] = a
		a.Pets = []Pet{}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, name, species, breed, colour, birth_date
		FROM pets
		WHERE appointment_id = ANY($1)
		ORDER BY id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to load pets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Pet
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.Name, &p.Species, &p.Breed, &p.Colour, &p.BirthDate); err != nil {
			return fmt.Errorf("failed to scan pet: %w", err)
		}
		if a, ok := byID[p.AppointmentID]; ok {
			a.Pets = append(a.Pets, p)
		}
	}
	return rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.AppointmentNo, &a.AppointmentDate, &a.AppointmentTime,
		&a.Reason, &a.Status, &a.PatientID, &a.VeterinarianID,
		&a.PatientEmail, &a.VeterinarianEmail,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var appts []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, *appt)
	}
	return appts, rows.Err()
}

func refs(appts []Appointment) []*Appointment {
	out := make([]*Appointment, len(appts))
	for i := range appts {
		out[i] = &appts[i]
	}
	return out
}
