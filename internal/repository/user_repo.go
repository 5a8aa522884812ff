package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	contractsdb "javazone-calendar/contracts/db"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate inserts the user on first sight and returns the stored row.
// Name and picture are refreshed from the token every time.
func (r *UserRepository) GetOrCreate(ctx context.Context, u *contractsdb.User) (*contractsdb.User, error) {
	query := `
        INSERT INTO users (email, name, picture_url)
        VALUES ($1, $2, $3)
        ON CONFLICT (email) DO UPDATE
            SET name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
                picture_url = COALESCE(NULLIF(EXCLUDED.picture_url, ''), users.picture_url)
        RETURNING email, name, picture_url
    `
	var out contractsdb.User
	err := r.db.QueryRow(ctx, query, u.Email, u.Name, u.PictureURL).Scan(&out.Email, &out.Name, &out.PictureURL)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &out, nil
}

// FindByEmail returns user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*contractsdb.User, error) {
	query := `
        SELECT email, name, picture_url
        FROM users
        WHERE email = $1
    `
	var u contractsdb.User
	err := r.db.QueryRow(ctx, query, email).Scan(&u.Email, &u.Name, &u.PictureURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListBySession returns the users who joined a session, ordered by email.
func (r *UserRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*contractsdb.User, error) {
	query := `
        SELECT u.email, u.name, u.picture_url
        FROM users u
        JOIN user_session us ON us.user_email = u.email
        WHERE us.session_id = $1
        ORDER BY u.email
    `
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session users: %w", err)
	}
	defer rows.Close()

	var users []*contractsdb.User
	for rows.Next() {
		var u contractsdb.User
		if err := rows.Scan(&u.Email, &u.Name, &u.PictureURL); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Delete removes the user and, by cascade, every session association.
// Queued mails for the user are left in place.
func (r *UserRepository) Delete(ctx context.Context, email string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
