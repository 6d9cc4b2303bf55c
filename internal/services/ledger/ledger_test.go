package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ExtendEntitlement(ctx context.Context, userUID, planCode string, durationDays int) (time.Time, error) {
	args := m.Called(ctx, userUID, planCode, durationDays)
	return args.Get(0).(time.Time), args.Error(1)
}
func (m *RepoMock) CancelEntitlement(ctx context.Context, userUID string) (int, error) {
	args := m.Called(ctx, userUID)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) GetEntitlement(ctx context.Context, userUID string) (*models.Entitlement, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entitlement), args.Error(1)
}

type CatalogMock struct{ mock.Mock }

func (m *CatalogMock) Get(code string) (models.Plan, error) {
	args := m.Called(code)
	return args.Get(0).(models.Plan), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

type BalancerMock struct{ mock.Mock }

func (m *BalancerMock) EnsureAssigned(ctx context.Context, userUID string) (int64, error) {
	args := m.Called(ctx, userUID)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var monthPlan = models.Plan{Code: "1m", Label: "Месяц", DurationDays: 30, PriceKopecks: 9900, Currency: "RUB"}

func newService(repo *RepoMock, catalog *CatalogMock, cache *CacheMock, bal *BalancerMock) *LedgerService {
	return NewLedgerService(repo, catalog, cache, bal, newNoopLogger())
}

func TestExtend_Success(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)
	want := time.Now().Add(30 * 24 * time.Hour)

	catalog.On("Get", "1m").Return(monthPlan, nil).Once()
	repo.On("ExtendEntitlement", mock.Anything, "u1", "1m", 30).Return(want, nil).Once()
	cache.On("Invalidate", "entitlement:u1").Return(nil).Once()

	got, err := newService(repo, catalog, cache, bal).Extend(context.Background(), "u1", "1m")

	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestExtend_UnknownPlan(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)
	catalog.On("Get", "99y").Return(models.Plan{}, models.ErrUnknownPlan).Once()

	_, err := newService(repo, catalog, cache, bal).Extend(context.Background(), "u1", "99y")

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknownPlan))
	repo.AssertNotCalled(t, "ExtendEntitlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExtend_CacheInvalidationFailureIsNotFatal(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)
	want := time.Now().Add(30 * 24 * time.Hour)

	catalog.On("Get", "1m").Return(monthPlan, nil).Once()
	repo.On("ExtendEntitlement", mock.Anything, "u1", "1m", 30).Return(want, nil).Once()
	cache.On("Invalidate", "entitlement:u1").Return(errors.New("redis down")).Once()

	got, err := newService(repo, catalog, cache, bal).Extend(context.Background(), "u1", "1m")

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCancel_Success(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)
	repo.On("CancelEntitlement", mock.Anything, "u1").Return(1, nil).Once()
	cache.On("Invalidate", "entitlement:u1").Return(nil).Once()

	err := newService(repo, catalog, cache, bal).Cancel(context.Background(), "u1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCancel_NoEntitlement(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)
	repo.On("CancelEntitlement", mock.Anything, "ghost").Return(0, nil).Once()

	err := newService(repo, catalog, cache, bal).Cancel(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNoEntitlement))
}

func TestStatus_ActiveWithServer(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)
	expiresAt := time.Now().Add(10 * 24 * time.Hour)

	cache.On("Get", "entitlement:u1", mock.Anything).Return(false, nil).Once()
	repo.On("GetEntitlement", mock.Anything, "u1").
		Return(&models.Entitlement{UserUID: "u1", PlanCode: "1m", ExpiresAt: expiresAt}, nil).Once()
	bal.On("EnsureAssigned", mock.Anything, "u1").Return(int64(3), nil).Once()
	cache.On("Set", "entitlement:u1", mock.Anything, time.Hour).Return(nil).Once()

	status, err := newService(repo, catalog, cache, bal).Status(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, "1m", status.PlanCode)
	require.NotNil(t, status.ServerID)
	assert.Equal(t, int64(3), *status.ServerID)
}

func TestStatus_ActiveNoCapacity(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)
	expiresAt := time.Now().Add(24 * time.Hour)

	cache.On("Get", "entitlement:u1", mock.Anything).Return(false, nil).Once()
	repo.On("GetEntitlement", mock.Anything, "u1").
		Return(&models.Entitlement{UserUID: "u1", PlanCode: "1m", ExpiresAt: expiresAt}, nil).Once()
	bal.On("EnsureAssigned", mock.Anything, "u1").Return(int64(0), models.ErrNoCapacity).Once()
	cache.On("Set", "entitlement:u1", mock.Anything, time.Hour).Return(nil).Once()

	status, err := newService(repo, catalog, cache, bal).Status(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Nil(t, status.ServerID)
}

func TestStatus_Expired(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)
	expiresAt := time.Now().Add(-time.Hour)

	cache.On("Get", "entitlement:u1", mock.Anything).Return(false, nil).Once()
	repo.On("GetEntitlement", mock.Anything, "u1").
		Return(&models.Entitlement{UserUID: "u1", PlanCode: "1m", ExpiresAt: expiresAt}, nil).Once()
	cache.On("Set", "entitlement:u1", mock.Anything, time.Hour).Return(nil).Once()

	status, err := newService(repo, catalog, cache, bal).Status(context.Background(), "u1")

	require.NoError(t, err)
	assert.False(t, status.Active)
	bal.AssertNotCalled(t, "EnsureAssigned", mock.Anything, mock.Anything)
}

func TestStatus_NeverHadEntitlement(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)

	cache.On("Get", "entitlement:ghost", mock.Anything).Return(false, nil).Once()
	repo.On("GetEntitlement", mock.Anything, "ghost").Return(nil, models.ErrNoEntitlement).Once()

	status, err := newService(repo, catalog, cache, bal).Status(context.Background(), "ghost")

	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.Nil(t, status.ExpiresAt)
}

// Кэшированный статус не должен пережить сам срок доступа: для доступа,
// истекающего раньше часового TTL, кэш ставится до момента истечения.
func TestStatus_CacheTTLCappedByExpiry(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)
	expiresAt := time.Now().Add(10 * time.Minute)

	cache.On("Get", "entitlement:u1", mock.Anything).Return(false, nil).Once()
	repo.On("GetEntitlement", mock.Anything, "u1").
		Return(&models.Entitlement{UserUID: "u1", PlanCode: "1m", ExpiresAt: expiresAt}, nil).Once()
	bal.On("EnsureAssigned", mock.Anything, "u1").Return(int64(1), nil).Once()
	cache.On("Set", "entitlement:u1", mock.Anything, mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= 10*time.Minute
	})).Return(nil).Once()

	status, err := newService(repo, catalog, cache, bal).Status(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, status.Active)
	cache.AssertExpectations(t)
}

func TestStatus_CacheHitSkipsStorage(t *testing.T) {
	repo, catalog, cache, bal := new(RepoMock), new(CatalogMock), new(CacheMock), new(BalancerMock)

	cache.On("Get", "entitlement:u1", mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(1).(*models.AccessStatus)
			out.Active = true
			out.PlanCode = "1m"
		}).Return(true, nil).Once()

	status, err := newService(repo, catalog, cache, bal).Status(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, status.Active)
	repo.AssertNotCalled(t, "GetEntitlement", mock.Anything, mock.Anything)
}
