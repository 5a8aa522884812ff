package sessions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"javazone-calendar/contracts/db"
	"javazone-calendar/internal/calendar"
	"javazone-calendar/internal/model"
	"javazone-calendar/pkg/logger"
)

// Store is the session persistence used by the service.
type Store interface {
	ListSessions(ctx context.Context) ([]*db.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*db.Session, error)
	ListByUser(ctx context.Context, email string) ([]*db.Session, error)
	Join(ctx context.Context, id uuid.UUID, email string) (*db.Session, bool, error)
	Leave(ctx context.Context, id uuid.UUID, email string) (*db.Session, bool, error)
	Resend(ctx context.Context, id uuid.UUID, email string) (*db.Session, bool, error)
}

// UserStore resolves attendees of a session.
type UserStore interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*db.User, error)
}

type Service struct {
	sessions Store
	users    UserStore
	calendar *calendar.Builder
	logger   *zap.Logger
}

func NewService(sessions Store, users UserStore, builder *calendar.Builder, logger *zap.Logger) *Service {
	return &Service{
		sessions: sessions,
		users:    users,
		calendar: builder,
		logger:   logger,
	}
}

// List returns every stored session. Rows whose snapshot no longer decodes
// are logged and left out.
func (s *Service) List(ctx context.Context) ([]*model.Session, error) {
	rows, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return s.parseAll(ctx, rows), nil
}

// Get returns one session with its attendees.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.SessionWithUsers, error) {
	row, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withUsers(ctx, row)
}

// Join adds the user to the session. The INVITE is queued in the same
// transaction; joining again queues nothing.
func (s *Service) Join(ctx context.Context, id uuid.UUID, email string) (*model.SessionWithUsers, error) {
	row, joined, err := s.sessions.Join(ctx, id, email)
	if err != nil {
		return nil, err
	}
	logger.WithTrace(ctx, s.logger).Info("User joined session",
		zap.String("session_id", id.String()),
		zap.String("email", email),
		zap.Bool("changed", joined),
	)
	return s.withUsers(ctx, row)
}

// Leave removes the user from the session and queues a CANCEL if they were
// an attendee.
func (s *Service) Leave(ctx context.Context, id uuid.UUID, email string) (*model.SessionWithUsers, error) {
	row, left, err := s.sessions.Leave(ctx, id, email)
	if err != nil {
		return nil, err
	}
	logger.WithTrace(ctx, s.logger).Info("User left session",
		zap.String("session_id", id.String()),
		zap.String("email", email),
		zap.Bool("changed", left),
	)
	return s.withUsers(ctx, row)
}

// Resend queues an UPDATE carrying the current snapshot for an attendee.
func (s *Service) Resend(ctx context.Context, id uuid.UUID, email string) (*model.SessionWithUsers, error) {
	row, queued, err := s.sessions.Resend(ctx, id, email)
	if err != nil {
		return nil, err
	}
	if !queued {
		logger.WithTrace(ctx, s.logger).Warn("Resend requested by non-attendee",
			zap.String("session_id", id.String()),
			zap.String("email", email),
		)
	}
	return s.withUsers(ctx, row)
}

// Calendar renders every session as a PUBLISH feed.
func (s *Service) Calendar(ctx context.Context) (calendar.Document, error) {
	sessions, err := s.List(ctx)
	if err != nil {
		return calendar.Document{}, err
	}
	return s.calendar.Publish(sessions), nil
}

// UserCalendar renders the sessions a user joined as a PUBLISH feed.
func (s *Service) UserCalendar(ctx context.Context, email string) (calendar.Document, error) {
	rows, err := s.sessions.ListByUser(ctx, email)
	if err != nil {
		return calendar.Document{}, err
	}
	return s.calendar.Publish(s.parseAll(ctx, rows)), nil
}

func (s *Service) parseAll(ctx context.Context, rows []*db.Session) []*model.Session {
	out := make([]*model.Session, 0, len(rows))
	for _, row := range rows {
		parsed, err := model.ParseSession(row.Data)
		if err != nil {
			logger.WithTrace(ctx, s.logger).Warn("Skipping undecodable session",
				zap.String("session_id", row.ID.String()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, parsed)
	}
	return out
}

func (s *Service) withUsers(ctx context.Context, row *db.Session) (*model.SessionWithUsers, error) {
	parsed, err := model.ParseSession(row.Data)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", row.ID, err)
	}

	users, err := s.users.ListBySession(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	out := &model.SessionWithUsers{Session: parsed, Users: make([]model.User, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, model.User{Email: u.Email, Name: u.Name, PictureURL: u.PictureURL})
	}
	return out, nil
}
