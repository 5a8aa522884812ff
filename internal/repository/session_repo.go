package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	contractsdb "javazone-calendar/contracts/db"
	"javazone-calendar/pkg/db"
	"javazone-calendar/pkg/otel"
	"javazone-calendar/pkg/outbox"
)

type SessionRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	now    func() time.Time
}

func NewSessionRepository(pool *pgxpool.Pool, queue *outbox.Repository) *SessionRepository {
	return &SessionRepository{db: pool, outbox: queue, now: time.Now}
}

// ListSessions returns every stored session with the emails of its users.
func (r *SessionRepository) ListSessions(ctx context.Context) ([]*contractsdb.Session, error) {
	query := `
		SELECT s.id, s.hash, s.data,
		       COALESCE(array_agg(us.user_email ORDER BY us.user_email)
		                FILTER (WHERE us.user_email IS NOT NULL), '{}')
		FROM sessions s
		LEFT JOIN user_session us ON us.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*contractsdb.Session
	for rows.Next() {
		var s contractsdb.Session
		if err := rows.Scan(&s.ID, &s.Hash, &s.Data, &s.Users); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}

	return sessions, rows.Err()
}

// Get returns one session with its users.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*contractsdb.Session, error) {
	query := `
		SELECT s.id, s.hash, s.data,
		       COALESCE(array_agg(us.user_email ORDER BY us.user_email)
		                FILTER (WHERE us.user_email IS NOT NULL), '{}')
		FROM sessions s
		LEFT JOIN user_session us ON us.session_id = s.id
		WHERE s.id = $1
		GROUP BY s.id
	`

	var s contractsdb.Session
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.Hash, &s.Data, &s.Users)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// ListByUser returns the sessions a user joined. Users is not populated.
func (r *SessionRepository) ListByUser(ctx context.Context, email string) ([]*contractsdb.Session, error) {
	query := `
		SELECT s.id, s.hash, s.data
		FROM sessions s
		JOIN user_session us ON us.session_id = s.id
		WHERE us.user_email = $1
		ORDER BY s.id
	`

	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query user sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*contractsdb.Session
	for rows.Next() {
		var s contractsdb.Session
		if err := rows.Scan(&s.ID, &s.Hash, &s.Data); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}

	return sessions, rows.Err()
}

// CommitSync applies one reconciliation pass in a single transaction.
func (r *SessionRepository) CommitSync(ctx context.Context, batch *contractsdb.SyncBatch) error {
	return otel.WithDBSpan(ctx, "sessions.commit_sync", func(ctx context.Context) error {
		return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
			for _, s := range batch.Added {
				_, err := tx.Exec(ctx, `
					INSERT INTO sessions (id, hash, data)
					VALUES ($1, $2, $3)
					ON CONFLICT (id) DO UPDATE SET hash = EXCLUDED.hash, data = EXCLUDED.data
				`, s.ID, s.Hash, s.Data)
				if err != nil {
					return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
				}
			}

			for _, s := range batch.Changed {
				_, err := tx.Exec(ctx, `UPDATE sessions SET hash = $2, data = $3 WHERE id = $1`, s.ID, s.Hash, s.Data)
				if err != nil {
					return fmt.Errorf("failed to update session %s: %w", s.ID, err)
				}
			}

			// user_session rows go with the session (ON DELETE CASCADE)
			for _, id := range batch.Deleted {
				if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
					return fmt.Errorf("failed to delete session %s: %w", id, err)
				}
			}

			return outbox.InsertEntriesInTx(ctx, tx, r.outbox, "sync", batch.Entries...)
		})
	})
}

// Join associates the user with the session and queues an INVITE. Joining
// twice is a no-op; joined reports whether anything changed.
func (r *SessionRepository) Join(ctx context.Context, id uuid.UUID, email string) (s *contractsdb.Session, joined bool, err error) {
	err = otel.WithDBSpan(ctx, "sessions.join", func(ctx context.Context) error {
		return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
			if s, err = lockSession(ctx, tx, id); err != nil {
				return err
			}

			tag, err := tx.Exec(ctx, `
				INSERT INTO user_session (user_email, session_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, email, id)
			if err != nil {
				return fmt.Errorf("failed to join session: %w", err)
			}

			if joined = tag.RowsAffected() > 0; joined {
				entry := outbox.NewEntry(email, s.Data, outbox.ActionInvite, r.now())
				if err := outbox.InsertEntriesInTx(ctx, tx, r.outbox, "join", entry); err != nil {
					return err
				}
			}

			s.Users, err = sessionUsers(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return nil, false, err
	}
	return s, joined, nil
}

// Leave removes the association and queues a CANCEL. Leaving a session the
// user never joined is a no-op.
func (r *SessionRepository) Leave(ctx context.Context, id uuid.UUID, email string) (s *contractsdb.Session, left bool, err error) {
	err = otel.WithDBSpan(ctx, "sessions.leave", func(ctx context.Context) error {
		return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
			if s, err = lockSession(ctx, tx, id); err != nil {
				return err
			}

			tag, err := tx.Exec(ctx, `
				DELETE FROM user_session
				WHERE user_email = $1 AND session_id = $2
			`, email, id)
			if err != nil {
				return fmt.Errorf("failed to leave session: %w", err)
			}

			if left = tag.RowsAffected() > 0; left {
				entry := outbox.NewEntry(email, s.Data, outbox.ActionCancel, r.now())
				if err := outbox.InsertEntriesInTx(ctx, tx, r.outbox, "leave", entry); err != nil {
					return err
				}
			}

			s.Users, err = sessionUsers(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return nil, false, err
	}
	return s, left, nil
}

// Resend queues an UPDATE with the current snapshot for a user who joined
// the session. queued is false when the user is not an attendee.
func (r *SessionRepository) Resend(ctx context.Context, id uuid.UUID, email string) (s *contractsdb.Session, queued bool, err error) {
	err = otel.WithDBSpan(ctx, "sessions.resend", func(ctx context.Context) error {
		return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
			if s, err = lockSession(ctx, tx, id); err != nil {
				return err
			}
			if s.Users, err = sessionUsers(ctx, tx, id); err != nil {
				return err
			}

			for _, u := range s.Users {
				if u == email {
					queued = true
					break
				}
			}
			if !queued {
				return nil
			}

			entry := outbox.NewEntry(email, s.Data, outbox.ActionUpdate, r.now())
			return outbox.InsertEntriesInTx(ctx, tx, r.outbox, "update", entry)
		})
	})
	if err != nil {
		return nil, false, err
	}
	return s, queued, nil
}

// lockSession reads the session row FOR UPDATE so a concurrent sync cannot
// change or delete it between the read and the queue insert.
func lockSession(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*contractsdb.Session, error) {
	var s contractsdb.Session
	err := tx.QueryRow(ctx, `SELECT id, hash, data FROM sessions WHERE id = $1 FOR UPDATE`, id).
		Scan(&s.ID, &s.Hash, &s.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	return &s, nil
}

func sessionUsers(ctx context.Context, tx pgx.Tx, id uuid.UUID) ([]string, error) {
	rows, err := tx.Query(ctx, `
		SELECT user_email FROM user_session
		WHERE session_id = $1
		ORDER BY user_email
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query session users: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan session user: %w", err)
		}
		users = append(users, email)
	}
	return users, rows.Err()
}
