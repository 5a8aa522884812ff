package sessions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"javazone-calendar/contracts/db"
	"javazone-calendar/internal/calendar"
	"javazone-calendar/internal/repository"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListSessions(ctx context.Context) ([]*db.Session, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*db.Session), args.Error(1)
}

func (m *mockStore) Get(ctx context.Context, id uuid.UUID) (*db.Session, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*db.Session)
	return s, args.Error(1)
}

func (m *mockStore) ListByUser(ctx context.Context, email string) ([]*db.Session, error) {
	args := m.Called(ctx, email)
	return args.Get(0).([]*db.Session), args.Error(1)
}

func (m *mockStore) Join(ctx context.Context, id uuid.UUID, email string) (*db.Session, bool, error) {
	args := m.Called(ctx, id, email)
	s, _ := args.Get(0).(*db.Session)
	return s, args.Bool(1), args.Error(2)
}

func (m *mockStore) Leave(ctx context.Context, id uuid.UUID, email string) (*db.Session, bool, error) {
	args := m.Called(ctx, id, email)
	s, _ := args.Get(0).(*db.Session)
	return s, args.Bool(1), args.Error(2)
}

func (m *mockStore) Resend(ctx context.Context, id uuid.UUID, email string) (*db.Session, bool, error) {
	args := m.Called(ctx, id, email)
	s, _ := args.Get(0).(*db.Session)
	return s, args.Bool(1), args.Error(2)
}

type staticUsers map[uuid.UUID][]*db.User

func (u staticUsers) ListBySession(_ context.Context, id uuid.UUID) ([]*db.User, error) {
	return u[id], nil
}

var (
	idA = uuid.MustParse("5a1f8b52-3f55-4c1b-9c3e-0b7ad1f3a001")
	idB = uuid.MustParse("5a1f8b52-3f55-4c1b-9c3e-0b7ad1f3a002")
)

func row(id uuid.UUID, title string) *db.Session {
	return &db.Session{
		ID:   id,
		Hash: "h",
		Data: `{"sessionId":"` + id.String() + `","title":"` + title + `","startTime":"2025-09-03T10:20","endTime":"2025-09-03T11:20","speakers":[]}`,
	}
}

func newService(store Store, users UserStore) *Service {
	return NewService(store, users, calendar.NewBuilder(2025, ""), zap.NewNop())
}

func TestListSkipsUndecodableRows(t *testing.T) {
	store := &mockStore{}
	store.On("ListSessions", mock.Anything).Return([]*db.Session{
		row(idA, "Records"),
		{ID: idB, Data: `{"title": "no id"}`},
	}, nil)

	got, err := newService(store, staticUsers{}).List(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Records", got[0].Title)
}

func TestGetNotFound(t *testing.T) {
	store := &mockStore{}
	store.On("Get", mock.Anything, idA).Return(nil, repository.ErrNotFound)

	_, err := newService(store, staticUsers{}).Get(context.Background(), idA)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestJoinReturnsAttendees(t *testing.T) {
	store := &mockStore{}
	joined := row(idA, "Records")
	joined.Users = []string{"ada@example.com"}
	store.On("Join", mock.Anything, idA, "ada@example.com").Return(joined, true, nil).Once()

	users := staticUsers{idA: {{Email: "ada@example.com", Name: "Ada"}}}
	got, err := newService(store, users).Join(context.Background(), idA, "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, "Records", got.Title)
	require.Len(t, got.Users, 1)
	assert.Equal(t, "Ada", got.Users[0].Name)
	store.AssertExpectations(t)
}

func TestLeaveAndResendPassThroughErrors(t *testing.T) {
	boom := errors.New("connection refused")
	store := &mockStore{}
	store.On("Leave", mock.Anything, idA, "ada@example.com").Return(nil, false, boom)
	store.On("Resend", mock.Anything, idA, "ada@example.com").Return(row(idA, "Records"), false, nil)

	svc := newService(store, staticUsers{})

	_, err := svc.Leave(context.Background(), idA, "ada@example.com")
	assert.ErrorIs(t, err, boom)

	got, err := svc.Resend(context.Background(), idA, "ada@example.com")
	require.NoError(t, err)
	assert.Empty(t, got.Users)
}

func TestCalendarFeeds(t *testing.T) {
	store := &mockStore{}
	store.On("ListSessions", mock.Anything).Return([]*db.Session{row(idA, "Records"), row(idB, "Loom")}, nil)
	store.On("ListByUser", mock.Anything, "ada@example.com").Return([]*db.Session{row(idB, "Loom")}, nil)

	svc := newService(store, staticUsers{})

	all, err := svc.Calendar(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "text/calendar; method=PUBLISH", all.ContentType())
	assert.Equal(t, 2, strings.Count(string(all.Body), "BEGIN:VEVENT"))

	mine, err := svc.UserCalendar(context.Background(), "ada@example.com")
	require.NoError(t, err)
	body := string(mine.Body)
	assert.Equal(t, 1, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:Loom")
}
