package paymentconfirm

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/access-engine/internal/config"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// MockService реализует интерфейс paymentconfirm.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) RecordConfirmation(ctx context.Context, c models.Confirmation) (bool, error) {
	args := m.Called(ctx, c)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func confirmationBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.Confirmation{
		OrderID:       "o1",
		UserUID:       "u1",
		PlanCode:      "1m",
		AmountKopecks: 9900,
	})
	require.NoError(t, err)
	return body
}

func TestConfirmHandler(t *testing.T) {
	const secret = "channel_secret"
	channels := []config.PaymentChannel{{Name: "webhook", Secret: secret}}

	tests := []struct {
		name           string
		channel        string
		body           []byte
		signature      string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:      "первое подтверждение применяется",
			channel:   "webhook",
			body:      nil, // заполняется ниже
			signature: "",
			setupMock: func(m *MockService) {
				m.On("RecordConfirmation", mock.Anything, mock.MatchedBy(func(c models.Confirmation) bool {
					return c.OrderID == "o1" && c.Channel == "webhook"
				})).Return(true, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"applied":true`,
		},
		{
			name:      "повторная доставка отвечает успехом без зачисления",
			channel:   "webhook",
			body:      nil,
			signature: "",
			setupMock: func(m *MockService) {
				m.On("RecordConfirmation", mock.Anything, mock.Anything).Return(false, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"applied":false`,
		},
		{
			name:           "неизвестный канал",
			channel:        "unknown",
			body:           nil,
			signature:      "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"unknown payment channel"`,
		},
		{
			name:           "неверная подпись",
			channel:        "webhook",
			body:           nil,
			signature:      "bm90IGEgc2lnbmF0dXJl",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"invalid signature"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body = confirmationBody(t)
			}
			signature := tt.signature
			if signature == "" {
				signature = sign(secret, body)
			}

			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(newNoopLogger(), mockService, channels)

			r := chi.NewRouter()
			r.Post("/payments/{channel}/confirm", handler.ServeHTTP)

			req := httptest.NewRequest(http.MethodPost, "/payments/"+tt.channel+"/confirm", bytes.NewReader(body))
			req.Header.Set("X-Signature", signature)
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestConfirmHandler_InvalidJSON(t *testing.T) {
	const secret = "channel_secret"
	body := []byte("not a json")

	mockService := new(MockService)
	handler := New(newNoopLogger(), mockService, []config.PaymentChannel{{Name: "webhook", Secret: secret}})

	r := chi.NewRouter()
	r.Post("/payments/{channel}/confirm", handler.ServeHTTP)

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/confirm", bytes.NewReader(body))
	req.Header.Set("X-Signature", sign(secret, body))
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockService.AssertNotCalled(t, "RecordConfirmation", mock.Anything, mock.Anything)
}

func TestConfirmHandler_MissingFields(t *testing.T) {
	const secret = "channel_secret"
	body, err := json.Marshal(map[string]any{"order_id": "o1"})
	require.NoError(t, err)

	mockService := new(MockService)
	handler := New(newNoopLogger(), mockService, []config.PaymentChannel{{Name: "webhook", Secret: secret}})

	r := chi.NewRouter()
	r.Post("/payments/{channel}/confirm", handler.ServeHTTP)

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/confirm", bytes.NewReader(body))
	req.Header.Set("X-Signature", sign(secret, body))
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	mockService.AssertNotCalled(t, "RecordConfirmation", mock.Anything, mock.Anything)
}
