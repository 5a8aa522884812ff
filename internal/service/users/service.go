package users

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"javazone-calendar/contracts/db"
	"javazone-calendar/internal/model"
	"javazone-calendar/pkg/logger"
)

// Store is the user persistence used by the service.
type Store interface {
	GetOrCreate(ctx context.Context, u *db.User) (*db.User, error)
	FindByEmail(ctx context.Context, email string) (*db.User, error)
	Delete(ctx context.Context, email string) error
}

// SessionLister returns the sessions a user joined.
type SessionLister interface {
	ListByUser(ctx context.Context, email string) ([]*db.Session, error)
}

// Profile is the authenticated user and the ids of the sessions they joined.
type Profile struct {
	model.User
	Sessions []uuid.UUID `json:"sessions"`
}

type Service struct {
	users    Store
	sessions SessionLister
	logger   *zap.Logger
}

func NewService(users Store, sessions SessionLister, logger *zap.Logger) *Service {
	return &Service{users: users, sessions: sessions, logger: logger}
}

// GetOrCreate registers an authenticated user on first sight.
func (s *Service) GetOrCreate(ctx context.Context, u model.User) (*model.User, error) {
	row, err := s.users.GetOrCreate(ctx, &db.User{Email: u.Email, Name: u.Name, PictureURL: u.PictureURL})
	if err != nil {
		return nil, err
	}
	return &model.User{Email: row.Email, Name: row.Name, PictureURL: row.PictureURL}, nil
}

// Me returns the profile of a stored user.
func (s *Service) Me(ctx context.Context, email string) (*Profile, error) {
	row, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	joined, err := s.sessions.ListByUser(ctx, email)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		User:     model.User{Email: row.Email, Name: row.Name, PictureURL: row.PictureURL},
		Sessions: make([]uuid.UUID, 0, len(joined)),
	}
	for _, sess := range joined {
		p.Sessions = append(p.Sessions, sess.ID)
	}
	return p, nil
}

// Delete removes the user and their session associations. No CANCEL mails
// are queued.
func (s *Service) Delete(ctx context.Context, email string) error {
	if err := s.users.Delete(ctx, email); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.logger).Info("User deleted", zap.String("email", email))
	return nil
}
