// Package ledger содержит бизнес-логику учёта сроков доступа.
//
// Леджер владеет единственной записью срока на пользователя: продление
// складывает купленные периоды, отмена выставляет срок в прошлое, статус
// отвечает, активен ли доступ сейчас. Вся конкурентная корректность
// обеспечивается атомарным upsert в хранилище, сервис своих блокировок
// не держит.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// EntitlementRepository описывает операции хранилища над записями доступа.
type EntitlementRepository interface {
	// ExtendEntitlement продлевает доступ атомарным upsert и возвращает новый срок.
	ExtendEntitlement(ctx context.Context, userUID, planCode string, durationDays int) (time.Time, error)
	// CancelEntitlement выставляет срок в прошлое, возвращает число изменённых строк.
	CancelEntitlement(ctx context.Context, userUID string) (int, error)
	// GetEntitlement возвращает запись доступа либо models.ErrNoEntitlement.
	GetEntitlement(ctx context.Context, userUID string) (*models.Entitlement, error)
}

// Catalog возвращает тариф по коду либо models.ErrUnknownPlan.
type Catalog interface {
	Get(code string) (models.Plan, error)
}

// Cache описывает методы для кэширования статуса доступа.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Balancer выдаёт пользователю сервер доступа.
type Balancer interface {
	EnsureAssigned(ctx context.Context, userUID string) (int64, error)
}

// LedgerService реализует продление, отмену и проверку статуса доступа.
type LedgerService struct {
	repo     EntitlementRepository
	catalog  Catalog
	cache    Cache
	balancer Balancer
	log      *slog.Logger
}

// NewLedgerService создает новый экземпляр LedgerService.
func NewLedgerService(repo EntitlementRepository, catalog Catalog, cache Cache, balancer Balancer, log *slog.Logger) *LedgerService {
	return &LedgerService{
		repo:     repo,
		catalog:  catalog,
		cache:    cache,
		balancer: balancer,
		log:      log,
	}
}

// statusCacheTTL — верхняя граница жизни кэшированного статуса.
const statusCacheTTL = time.Hour

func cacheKey(userUID string) string {
	return fmt.Sprintf("entitlement:%s", userUID)
}

// Extend продлевает доступ пользователя на длительность тарифа и возвращает
// новый срок. База продления — максимум из текущего срока и настоящего
// момента: действующий доступ наращивается, истёкший отсчитывается заново.
func (s *LedgerService) Extend(ctx context.Context, userUID, planCode string) (time.Time, error) {
	const op = "ledger.Extend"

	plan, err := s.catalog.Get(planCode)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt, err := s.repo.ExtendEntitlement(ctx, userUID, plan.Code, plan.DurationDays)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("entitlement extended",
		slog.String("user_uid", userUID),
		slog.String("plan_code", plan.Code),
		slog.Time("expires_at", expiresAt))

	if err := s.cache.Invalidate(cacheKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate status cache", slog.String("user_uid", userUID), sl.Err(err))
	}
	return expiresAt, nil
}

// Cancel выставляет срок доступа в прошлое. Запись остаётся в леджере,
// поэтому следующее продление не получит искусственной базы в будущем.
// Если доступа не было, возвращает models.ErrNoEntitlement.
func (s *LedgerService) Cancel(ctx context.Context, userUID string) error {
	const op = "ledger.Cancel"

	affected, err := s.repo.CancelEntitlement(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNoEntitlement)
	}

	s.log.Info("entitlement cancelled", slog.String("user_uid", userUID))

	if err := s.cache.Invalidate(cacheKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate status cache", slog.String("user_uid", userUID), sl.Err(err))
	}
	return nil
}

// Status возвращает текущий статус доступа пользователя. Для активного
// доступа попутно проверяется привязка к серверу: если сервер пользователя
// выключили, балансировщик молча переносит его на живой.
func (s *LedgerService) Status(ctx context.Context, userUID string) (*models.AccessStatus, error) {
	const op = "ledger.Status"

	key := cacheKey(userUID)
	var cached models.AccessStatus
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read status cache", slog.String("user_uid", userUID), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	entitlement, err := s.repo.GetEntitlement(ctx, userUID)
	if err != nil {
		if errors.Is(err, models.ErrNoEntitlement) {
			return &models.AccessStatus{Active: false}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	status := &models.AccessStatus{
		Active:    entitlement.ExpiresAt.After(time.Now()),
		ExpiresAt: &entitlement.ExpiresAt,
		PlanCode:  entitlement.PlanCode,
	}

	if status.Active {
		serverID, err := s.balancer.EnsureAssigned(ctx, userUID)
		switch {
		case err == nil:
			status.ServerID = &serverID
		case errors.Is(err, models.ErrNoCapacity):
			// Доступ действителен, место появится позже.
			s.log.Warn("active user left without server", slog.String("user_uid", userUID))
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	// TTL не переживает сам срок: кэш не должен показывать активный
	// доступ после его окончания.
	ttl := statusCacheTTL
	if status.Active {
		if until := time.Until(entitlement.ExpiresAt); until < ttl {
			ttl = until
		}
	}
	if ttl > 0 {
		if err := s.cache.Set(key, status, ttl); err != nil {
			s.log.Warn("failed to cache status", slog.String("user_uid", userUID), sl.Err(err))
		}
	}
	return status, nil
}
