package sender

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/access-engine/internal/lib/milestone"
	"github.com/magabrotheeeer/access-engine/internal/lib/smtp"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

type writeCloser struct {
	buf    *bytes.Buffer
	closed bool
}

func (w *writeCloser) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *writeCloser) Close() error                { w.closed = true; return nil }

type ClientMock struct {
	mock.Mock
	data *writeCloser
}

func (m *ClientMock) Mail(from string) error { return m.Called(from).Error(0) }
func (m *ClientMock) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *ClientMock) Data() (io.WriteCloser, error) {
	args := m.Called()
	return m.data, args.Error(0)
}
func (m *ClientMock) Quit() error  { return m.Called().Error(0) }
func (m *ClientMock) Close() error { return m.Called().Error(0) }

type TransportMock struct {
	mock.Mock
	client smtp.Client
}

func (m *TransportMock) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Error(0) != nil {
		return nil, args.Error(0)
	}
	return m.client, nil
}
func (m *TransportMock) GetSMTPUser() string { return "noreply@access.example" }

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func happyClient() *ClientMock {
	client := &ClientMock{data: &writeCloser{buf: &bytes.Buffer{}}}
	client.On("Mail", "noreply@access.example").Return(nil)
	client.On("Rcpt", "user@example.com").Return(nil)
	client.On("Data").Return(nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)
	return client
}

func reminderBody(t *testing.T, ms milestone.Milestone) []byte {
	body, err := json.Marshal(models.Reminder{
		UserUID:   "u1",
		Label:     "Алексей",
		Email:     "user@example.com",
		Milestone: string(ms),
		ExpiresAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return body
}

func TestSendUpcomingReminder_ThreeDays(t *testing.T) {
	client := happyClient()
	transport := &TransportMock{client: client}
	transport.On("Connect").Return(nil).Once()

	svc := NewSenderService(transport, newNoopLogger())
	err := svc.SendUpcomingReminder(reminderBody(t, milestone.UpcomingThreeDays))

	require.NoError(t, err)
	sent := client.data.buf.String()
	assert.Contains(t, sent, "To: user@example.com")
	assert.Contains(t, sent, "через 3 дня")
	assert.Contains(t, sent, "2026-09-01")
	assert.True(t, client.data.closed)
}

func TestSendUpcomingReminder_OneDay(t *testing.T) {
	client := happyClient()
	transport := &TransportMock{client: client}
	transport.On("Connect").Return(nil).Once()

	svc := NewSenderService(transport, newNoopLogger())
	err := svc.SendUpcomingReminder(reminderBody(t, milestone.UpcomingOneDay))

	require.NoError(t, err)
	assert.Contains(t, client.data.buf.String(), "через 1 день")
}

func TestSendExpiredReminder(t *testing.T) {
	client := happyClient()
	transport := &TransportMock{client: client}
	transport.On("Connect").Return(nil).Once()

	svc := NewSenderService(transport, newNoopLogger())
	err := svc.SendExpiredReminder(reminderBody(t, milestone.Expired))

	require.NoError(t, err)
	sent := client.data.buf.String()
	assert.Contains(t, sent, "Доступ приостановлен")
	assert.Contains(t, sent, "подключение приостановлено")
}

// Пользователь без email: письмо не отправляется, но сообщение
// подтверждается, чтобы не крутиться в очереди вечно.
func TestSend_NoEmailIsAcked(t *testing.T) {
	transport := &TransportMock{}

	body, err := json.Marshal(models.Reminder{UserUID: "u1", Milestone: string(milestone.Expired)})
	require.NoError(t, err)

	svc := NewSenderService(transport, newNoopLogger())
	require.NoError(t, svc.SendExpiredReminder(body))
	transport.AssertNotCalled(t, "Connect")
}

func TestSend_BadPayload(t *testing.T) {
	transport := &TransportMock{}
	svc := NewSenderService(transport, newNoopLogger())

	err := svc.SendUpcomingReminder([]byte("not a json"))
	require.Error(t, err)
}

func TestSend_ConnectFailureRequeues(t *testing.T) {
	transport := &TransportMock{}
	transport.On("Connect").Return(errors.New("dial tcp: refused")).Once()

	svc := NewSenderService(transport, newNoopLogger())
	err := svc.SendUpcomingReminder(reminderBody(t, milestone.UpcomingThreeDays))

	require.Error(t, err)
}
