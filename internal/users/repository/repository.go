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

// User is the directory projection of an account. The password hash never
// leaves the auth module.
type User struct {
	ID        int64
	Email     string
	FullName  string
	Phone     string
	UserType  string
	CreatedAt time.Time
}

// Veterinarian is a directory user joined with their biography, if any.
type Veterinarian struct {
	User
	Biography string
}

// ListParams controls pagination.
type ListParams struct {
	Page     int
	PageSize int
}

// ListResult is a page of users plus pagination metadata.
type ListResult struct {
	Items      []User
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// Store is the persistence contract the users service depends on.
type Store interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	ListByType(ctx context.Context, userType string, params ListParams) (*ListResult, error)
	ListVeterinarians(ctx context.Context) ([]Veterinarian, error)
	GetVeterinarian(ctx context.Context, id int64) (*Veterinarian, error)
	UpsertBiography(ctx context.Context, vetID int64, biography string) error
}

// Repository is the pgx implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, full_name, phone, user_type, created_at`

func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.FullName, &user.Phone, &user.UserType, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *Repository) ListByType(ctx context.Context, userType string, params ListParams) (*ListResult, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM users WHERE user_type = $1
	`, userType).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE user_type = $1
		ORDER BY full_name, id
		LIMIT $2 OFFSET $3
	`, userType, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.FullName, &user.Phone, &user.UserType, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		items = append(items, user)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &ListResult{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}, nil
}

func (r *Repository) ListVeterinarians(ctx context.Context) ([]Veterinarian, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.full_name, u.phone, u.user_type, u.created_at,
			COALESCE(b.biography, '')
		FROM users u
		LEFT JOIN vet_bios b ON b.vet_id = u.id
		WHERE u.user_type = 'VETERINARIAN'
		ORDER BY u.full_name, u.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list veterinarians: %w", err)
	}
	defer rows.Close()

	vets := make([]Veterinarian, 0)
	for rows.Next() {
		var vet Veterinarian
		if err := rows.Scan(&vet.ID, &vet.Email, &vet.FullName, &vet.Phone, &vet.UserType, &vet.CreatedAt, &vet.Biography); err != nil {
			return nil, fmt.Errorf("failed to scan veterinarian: %w", err)
		}
		vets = append(vets, vet)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return vets, nil
}

func (r *Repository) GetVeterinarian(ctx context.Context, id int64) (*Veterinarian, error) {
	var vet Veterinarian
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.full_name, u.phone, u.user_type, u.created_at,
			COALESCE(b.biography, '')
		FROM users u
		LEFT JOIN vet_bios b ON b.vet_id = u.id
		WHERE u.id = $1 AND u.user_type = 'VETERINARIAN'
	`, id).Scan(&vet.ID, &vet.Email, &vet.FullName, &vet.Phone, &vet.UserType, &vet.CreatedAt, &vet.Biography)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("veterinarian not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get veterinarian: %w", err)
	}
	return &vet, nil
}

func (r *Repository) UpsertBiography(ctx context.Context, vetID int64, biography string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vet_bios (vet_id, biography)
		VALUES ($1, $2)
		ON CONFLICT (vet_id) DO UPDATE
		SET biography = EXCLUDED.biography, updated_at = now()
	`, vetID, biography)
	if err != nil {
		return fmt.Errorf("failed to upsert biography: %w", err)
	}
	return nil
}

var _ Store = (*Repository)(nil)
