package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vetclinic_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PetRecord is a patient-owned pet profile, independent of any appointment.
type PetRecord struct {
	ID        int64
	OwnerID   int64
	Name      string
	Species   string
	Breed     string
	Colour    string
	BirthDate *time.Time
	PhotoKey  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence contract the pets service depends on.
type Store interface {
	SavePet(ctx context.Context, pet *PetRecord) (*PetRecord, error)
	SavePets(ctx context.Context, pets []PetRecord) ([]PetRecord, error)
	GetByID(ctx context.Context, id, ownerID int64) (*PetRecord, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]PetRecord, error)
	Update(ctx context.Context, pet *PetRecord) (*PetRecord, error)
	SetPhotoKey(ctx context.Context, id, ownerID int64, photoKey string) error
	Delete(ctx context.Context, id, ownerID int64) error
}

// Repository is the pgx implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const petColumns = `id, owner_id, name, species, breed, colour, birth_date, COALESCE(photo_key, ''), created_at, updated_at`

func (r *Repository) SavePet(ctx context.Context, pet *PetRecord) (*PetRecord, error) {
	var saved PetRecord
	err := r.pool.QueryRow(ctx, `
		INSERT INTO pet_records (owner_id, name, species, breed, colour, birth_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+petColumns+`
	`, pet.OwnerID, pet.Name, pet.Species, pet.Breed, pet.Colour, pet.BirthDate).Scan(
		&saved.ID, &saved.OwnerID, &saved.Name, &saved.Species, &saved.Breed,
		&saved.Colour, &saved.BirthDate, &saved.PhotoKey, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save pet: %w", err)
	}
	return &saved, nil
}

// SavePets inserts a batch of pets in one transaction. All or none.
func (r *Repository) SavePets(ctx context.Context, pets []PetRecord) ([]PetRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	saved := make([]PetRecord, 0, len(pets))
	for _, pet := range pets {
		var rec PetRecord
		err := tx.QueryRow(ctx, `
			INSERT INTO pet_records (owner_id, name, species, breed, colour, birth_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+petColumns+`
		`, pet.OwnerID, pet.Name, pet.Species, pet.Breed, pet.Colour, pet.BirthDate).Scan(
			&rec.ID, &rec.OwnerID, &rec.Name, &rec.Species, &rec.Breed,
			&rec.Colour, &rec.BirthDate, &rec.PhotoKey, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to save pet: %w", err)
		}
		saved = append(saved, rec)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

func (r *Repository) GetByID(ctx context.Context, id, ownerID int64) (*PetRecord, error) {
	var pet PetRecord
	err := r.pool.QueryRow(ctx, `
		SELECT `+petColumns+`
		FROM pet_records WHERE id = $1 AND owner_id = $2
	`, id, ownerID).Scan(
		&pet.ID, &pet.OwnerID, &pet.Name, &pet.Species, &pet.Breed,
		&pet.Colour, &pet.BirthDate, &pet.PhotoKey, &pet.CreatedAt, &pet.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("pet not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pet: %w", err)
	}
	return &pet, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]PetRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+petColumns+`
		FROM pet_records WHERE owner_id = $1
		ORDER BY name, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pets: %w", err)
	}
	defer rows.Close()

	pets := make([]PetRecord, 0)
	for rows.Next() {
		var pet PetRecord
		if err := rows.Scan(
			&pet.ID, &pet.OwnerID, &pet.Name, &pet.Species, &pet.Breed,
			&pet.Colour, &pet.BirthDate, &pet.PhotoKey, &pet.CreatedAt, &pet.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pet: %w", err)
		}
		pets = append(pets, pet)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return pets, nil
}

func (r *Repository) Update(ctx context.Context, pet *PetRecord) (*PetRecord, error) {
	var updated PetRecord
	err := r.pool.QueryRow(ctx, `
		UPDATE pet_records
		SET name = $3, species = $4, breed = $5, colour = $6, birth_date = $7, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+petColumns+`
	`, pet.ID, pet.OwnerID, pet.Name, pet.Species, pet.Breed, pet.Colour, pet.BirthDate).Scan(
		&updated.ID, &updated.OwnerID, &updated.Name, &updated.Species, &updated.Breed,
		&updated.Colour, &updated.BirthDate, &updated.PhotoKey, &updated.CreatedAt, &updated.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("pet not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update pet: %w", err)
	}
	return &updated, nil
}

func (r *Repository) SetPhotoKey(ctx context.Context, id, ownerID int64, photoKey string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pet_records SET photo_key = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID, photoKey)
	if err != nil {
		return fmt.Errorf("failed to set photo key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("pet not found")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id, ownerID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM pet_records WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete pet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("pet not found")
	}
	return nil
}

var _ Store = (*Repository)(nil)
