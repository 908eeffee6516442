package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgRecipientDirectory resolves recipients straight from the users table.
// Both the API and the scheduler worker construct it, so it must not
// depend on any HTTP-facing service.
type pgRecipientDirectory struct {
	pool *pgxpool.Pool
}

// NewRecipientDirectory creates a database-backed RecipientDirectory.
func NewRecipientDirectory(pool *pgxpool.Pool) RecipientDirectory {
	return &pgRecipientDirectory{pool: pool}
}

func (d *pgRecipientDirectory) Recipient(ctx context.Context, userID int64) (Recipient, error) {
	var rec Recipient
	err := d.pool.QueryRow(ctx,
		`SELECT id, email, full_name FROM users WHERE id = $1`,
		userID,
	).Scan(&rec.ID, &rec.Email, &rec.FullName)
	if err != nil {
		return Recipient{}, err
	}
	return rec, nil
}
