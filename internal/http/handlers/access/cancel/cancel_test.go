package cancel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/access-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// MockService реализует интерфейс cancel.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Cancel(ctx context.Context, userUID string) error {
	args := m.Called(ctx, userUID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCancelHandler(t *testing.T) {
	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешная отмена",
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "u1").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"cancelled":true`,
		},
		{
			name:    "доступа не было",
			userUID: "u2",
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "u2").Return(models.ErrNoEntitlement)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"entitlement not found"`,
		},
		{
			name:    "ошибка хранилища",
			userUID: "u3",
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "u3").Return(errors.New("storage down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"internal error"`,
		},
		{
			name:           "отсутствует авторизация",
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"unauthorized"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(newNoopLogger(), mockService)

			req := httptest.NewRequest(http.MethodPost, "/access/cancel", nil)
			if tt.userUID != "" {
				ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
