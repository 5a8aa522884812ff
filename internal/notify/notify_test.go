package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"javazone-calendar/internal/calendar"
	"javazone-calendar/internal/mail"
	"javazone-calendar/pkg/outbox"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

const (
	scheduledSession = `{"id": "5a1f8b52-3f55-4c1b-9c3e-0b7ad1f3a001", "title": "Records", "abstract": "a",
		"startTime": "2025-09-03T10:20", "endTime": "2025-09-03T11:20", "speakers": []}`
	unscheduledSession = `{"id": "5a1f8b52-3f55-4c1b-9c3e-0b7ad1f3a001", "title": "Records", "abstract": "a", "video": "", "speakers": []}`
)

func newNotifier(sender mail.Sender) *Notifier {
	return NewNotifier(sender, calendar.NewBuilder(2025, "https://cal.example.com"), zap.NewNop())
}

func entry(action outbox.Action, data string) *outbox.Entry {
	return outbox.NewEntry("ada@example.com", data, action, time.Now())
}

func TestHandleInviteAndUpdate(t *testing.T) {
	for _, action := range []outbox.Action{outbox.ActionInvite, outbox.ActionUpdate} {
		t.Run(string(action), func(t *testing.T) {
			sender := &mockSender{}
			sender.On("Send", mock.Anything, mock.MatchedBy(func(msg mail.Message) bool {
				return msg.To == "ada@example.com" &&
					msg.Subject == "Records" &&
					msg.Calendar.Method == ics.MethodRequest
			})).Return(nil).Once()

			require.NoError(t, newNotifier(sender).Handle(context.Background(), entry(action, scheduledSession)))
			sender.AssertExpectations(t)
		})
	}
}

func TestHandleCancel(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg mail.Message) bool {
		return msg.Subject == "Cancelled: Records" && msg.Calendar.Method == ics.MethodCancel
	})).Return(nil).Once()

	// cancellations do not need times
	require.NoError(t, newNotifier(sender).Handle(context.Background(), entry(outbox.ActionCancel, unscheduledSession)))
	sender.AssertExpectations(t)
}

func TestHandleInviteWithoutTimesIsSkipped(t *testing.T) {
	sender := &mockSender{}

	err := newNotifier(sender).Handle(context.Background(), entry(outbox.ActionInvite, unscheduledSession))
	assert.ErrorIs(t, err, outbox.ErrSkip)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleErrors(t *testing.T) {
	errTransport := errors.New("smtp: 421 service not available")

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errTransport)
	n := newNotifier(sender)

	err := n.Handle(context.Background(), entry(outbox.ActionInvite, scheduledSession))
	assert.ErrorIs(t, err, errTransport)

	err = n.Handle(context.Background(), entry(outbox.ActionInvite, `{"title": `))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, outbox.ErrSkip)

	err = n.Handle(context.Background(), entry(outbox.Action("RESCHEDULE"), scheduledSession))
	assert.ErrorContains(t, err, "unsupported action")
}

func TestRegisterCoversAllActions(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	store := &sliceStore{}
	for _, a := range outbox.Actions() {
		store.entries = append(store.entries, entry(a, scheduledSession))
	}

	d := outbox.NewDispatcher(store, zap.NewNop())
	newNotifier(sender).Register(d)

	report, err := d.ProcessQueue(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Sent)
	assert.Zero(t, report.Unknown)
	sender.AssertNumberOfCalls(t, "Send", 3)
}
