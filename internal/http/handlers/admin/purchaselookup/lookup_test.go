package purchaselookup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// MockService реализует интерфейс purchaselookup.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) GetPurchaseByOrderID(ctx context.Context, orderID string) (*models.Purchase, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}

func (m *MockService) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testPurchase(uid string) *models.Purchase {
	confirmedAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return &models.Purchase{
		ID:            7,
		OrderID:       "order-7",
		UserUID:       uid,
		PlanCode:      "month",
		AmountKopecks: 29900,
		Currency:      "RUB",
		Channel:       "cardgate",
		Status:        models.PurchaseConfirmed,
		CreatedAt:     confirmedAt.Add(-time.Minute),
		ConfirmedAt:   &confirmedAt,
	}
}

func TestPurchaseLookupHandler(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
		absentBody     string
	}{
		{
			name: "покупка с владельцем",
			url:  "/admin/purchases/order-7",
			setupMock: func(m *MockService) {
				m.On("GetPurchaseByOrderID", mock.Anything, "order-7").
					Return(testPurchase("u1"), nil)
				m.On("GetUser", mock.Anything, "u1").
					Return(&models.User{UID: "u1", Label: "Алексей", Email: "a@example.com"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"user_email":"a@example.com"`,
		},
		{
			name: "владелец ещё не зарегистрирован",
			url:  "/admin/purchases/order-7",
			setupMock: func(m *MockService) {
				m.On("GetPurchaseByOrderID", mock.Anything, "order-7").
					Return(testPurchase("ghost"), nil)
				m.On("GetUser", mock.Anything, "ghost").
					Return(nil, fmt.Errorf("storage.GetUser: %w", sql.ErrNoRows))
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"order_id":"order-7"`,
			absentBody:     `"user_email"`,
		},
		{
			name: "покупка не найдена",
			url:  "/admin/purchases/order-missing",
			setupMock: func(m *MockService) {
				m.On("GetPurchaseByOrderID", mock.Anything, "order-missing").
					Return(nil, fmt.Errorf("storage.GetPurchaseByOrderID: %w", sql.ErrNoRows))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"purchase not found"`,
		},
		{
			name: "ошибка хранилища",
			url:  "/admin/purchases/order-7",
			setupMock: func(m *MockService) {
				m.On("GetPurchaseByOrderID", mock.Anything, "order-7").
					Return(nil, errors.New("connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"internal error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(newNoopLogger(), mockService)

			r := chi.NewRouter()
			r.Get("/admin/purchases/{order_id}", handler.ServeHTTP)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			if tt.absentBody != "" {
				assert.NotContains(t, rec.Body.String(), tt.absentBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}
