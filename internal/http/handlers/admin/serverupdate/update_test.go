package serverupdate

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// MockService реализует интерфейс serverupdate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) UpdateServer(ctx context.Context, id int64, req models.DummyServerUpdate) (int, error) {
	args := m.Called(ctx, id, req)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestUpdateServerHandler(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		requestBody    string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "деактивация сервера",
			url:         "/admin/servers/3",
			requestBody: `{"active":false}`,
			setupMock: func(m *MockService) {
				m.On("UpdateServer", mock.Anything, int64(3), mock.MatchedBy(func(r models.DummyServerUpdate) bool {
					return r.Active != nil && !*r.Active && r.Capacity == nil
				})).Return(1, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"updated_count":1`,
		},
		{
			name:        "изменение вместимости",
			url:         "/admin/servers/3",
			requestBody: `{"capacity":50}`,
			setupMock: func(m *MockService) {
				m.On("UpdateServer", mock.Anything, int64(3), mock.MatchedBy(func(r models.DummyServerUpdate) bool {
					return r.Capacity != nil && *r.Capacity == 50 && r.Active == nil
				})).Return(1, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"updated_count":1`,
		},
		{
			name:        "сброс лимита вместимости",
			url:         "/admin/servers/3",
			requestBody: `{"unlimited":true}`,
			setupMock: func(m *MockService) {
				m.On("UpdateServer", mock.Anything, int64(3), mock.MatchedBy(func(r models.DummyServerUpdate) bool {
					return r.Unlimited != nil && *r.Unlimited && r.Capacity == nil && r.Active == nil
				})).Return(1, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"updated_count":1`,
		},
		{
			name:           "вместимость и снятие лимита одновременно",
			url:            "/admin/servers/3",
			requestBody:    `{"capacity":50,"unlimited":true}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `capacity and unlimited are mutually exclusive`,
		},
		{
			name:        "сервер не найден",
			url:         "/admin/servers/404",
			requestBody: `{"active":true}`,
			setupMock: func(m *MockService) {
				m.On("UpdateServer", mock.Anything, int64(404), mock.Anything).Return(0, nil)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"server not found"`,
		},
		{
			name:           "некорректный ID",
			url:            "/admin/servers/abc",
			requestBody:    `{"active":true}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"failed to decode id from url"`,
		},
		{
			name:           "нулевая вместимость",
			url:            "/admin/servers/3",
			requestBody:    `{"capacity":0}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Capacity must be greater than 0`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(newNoopLogger(), mockService)

			r := chi.NewRouter()
			r.Patch("/admin/servers/{id}", handler.ServeHTTP)

			req := httptest.NewRequest(http.MethodPatch, tt.url, bytes.NewBufferString(tt.requestBody))
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
