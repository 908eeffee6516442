package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vetclinic_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

// Review is a patient's rating of a veterinarian. One review per
// patient-veterinarian pair.
type Review struct {
	ID             int64
	PatientID      int64
	VeterinarianID int64
	Stars          int
	Feedback       string
	PatientName    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Rating is the aggregated rating of a veterinarian.
type Rating struct {
	AverageStars float64
	Count        int64
}

// Store is the persistence contract the reviews service depends on.
type Store interface {
	Create(ctx context.Context, review *Review) (*Review, error)
	UpdateOwn(ctx context.Context, id, patientID int64, stars int, feedback string) (*Review, error)
	ListByVeterinarian(ctx context.Context, vetID int64) ([]Review, error)
	RatingByVeterinarian(ctx context.Context, vetID int64) (*Rating, error)
	DeleteOwn(ctx context.Context, id, patientID int64) error
	Delete(ctx context.Context, id int64) error
}

// Repository is the pgx implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const reviewColumns = `r.id, r.patient_id, r.veterinarian_id, r.stars, r.feedback, u.full_name, r.created_at, r.updated_at`

func (r *Repository) Create(ctx context.Context, review *Review) (*Review, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reviews (patient_id, veterinarian_id, stars, feedback)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, review.PatientID, review.VeterinarianID, review.Stars, review.Feedback).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, apperr.Conflict("you have already reviewed this veterinarian")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return r.getByID(ctx, id)
}

func (r *Repository) UpdateOwn(ctx context.Context, id, patientID int64, stars int, feedback string) (*Review, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reviews SET stars = $3, feedback = $4, updated_at = now()
		WHERE id = $1 AND patient_id = $2
	`, id, patientID, stars, feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("review not found")
	}
	return r.getByID(ctx, id)
}

func (r *Repository) getByID(ctx context.Context, id int64) (*Review, error) {
	var review Review
	err := r.pool.QueryRow(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r
		JOIN users u ON u.id = r.patient_id
		WHERE r.id = $1
	`, id).Scan(
		&review.ID, &review.PatientID, &review.VeterinarianID, &review.Stars,
		&review.Feedback, &review.PatientName, &review.CreatedAt, &review.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("review not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

func (r *Repository) ListByVeterinarian(ctx context.Context, vetID int64) ([]Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r
		JOIN users u ON u.id = r.patient_id
		WHERE r.veterinarian_id = $1
		ORDER BY r.created_at DESC
	`, vetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]Review, 0)
	for rows.Next() {
		var review Review
		if err := rows.Scan(
			&review.ID, &review.PatientID, &review.VeterinarianID, &review.Stars,
			&review.Feedback, &review.PatientName, &review.CreatedAt, &review.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return reviews, nil
}

func (r *Repository) RatingByVeterinarian(ctx context.Context, vetID int64) (*Rating, error) {
	var rating Rating
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(stars), 0), COUNT(*)
		FROM reviews WHERE veterinarian_id = $1
	`, vetID).Scan(&rating.AverageStars, &rating.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rating: %w", err)
	}
	return &rating, nil
}

func (r *Repository) DeleteOwn(ctx context.Context, id, patientID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM reviews WHERE id = $1 AND patient_id = $2
	`, id, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("review not found")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM reviews WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("review not found")
	}
	return nil
}

var _ Store = (*Repository)(nil)
