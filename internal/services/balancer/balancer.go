// Package balancer распределяет пользователей по серверам доступа.
//
// Действующая привязка сохраняется, пока её сервер активен и не переполнен:
// лишние переназначения рвут туннели пользователей. Новый сервер выбирается
// наименее загруженным, при равной занятости — самый старый в пуле.
package balancer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/access-engine/internal/metrics"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// AllocationRepository описывает операции хранилища для привязок и пула серверов.
type AllocationRepository interface {
	// GetCurrentAllocation возвращает привязку пользователя вместе
	// с состоянием её сервера, (nil, nil) если привязки нет.
	GetCurrentAllocation(ctx context.Context, userUID string) (*models.AllocationCheck, error)
	// ListCandidateServers возвращает активные серверы со свободными местами,
	// отсортированные по занятости и возрасту.
	ListCandidateServers(ctx context.Context) ([]*models.ServerOccupancy, error)
	// TryAssign привязывает пользователя к серверу, если место ещё свободно.
	TryAssign(ctx context.Context, userUID string, serverID int64) (bool, error)
}

// BalancerService реализует выбор сервера доступа для пользователя.
type BalancerService struct {
	repo AllocationRepository
	log  *slog.Logger
}

// NewBalancerService создает новый экземпляр BalancerService.
func NewBalancerService(repo AllocationRepository, log *slog.Logger) *BalancerService {
	return &BalancerService{
		repo: repo,
		log:  log,
	}
}

// EnsureAssigned возвращает сервер пользователя, переназначая его только
// если текущий сервер выключен или переполнен. Когда свободных мест нет,
// возвращает models.ErrNoCapacity: доступ пользователя при этом не страдает,
// попытка повторяется при следующем обращении.
func (s *BalancerService) EnsureAssigned(ctx context.Context, userUID string) (int64, error) {
	const op = "balancer.EnsureAssigned"

	current, err := s.repo.GetCurrentAllocation(ctx, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if current != nil && current.Active &&
		(current.Capacity == nil || current.Occupancy <= *current.Capacity) {
		metrics.AllocationsTotal.WithLabelValues("kept").Inc()
		return current.ServerID, nil
	}

	candidates, err := s.repo.ListCandidateServers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for _, candidate := range candidates {
		assigned, err := s.repo.TryAssign(ctx, userUID, candidate.ID)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		// Место могло быть занято между выборкой кандидатов и назначением,
		// тогда пробуем следующий сервер.
		if !assigned {
			continue
		}
		s.log.Info("user assigned to access server",
			slog.String("user_uid", userUID),
			slog.Int64("server_id", candidate.ID))
		metrics.AllocationsTotal.WithLabelValues("assigned").Inc()
		return candidate.ID, nil
	}

	s.log.Warn("no access server capacity left", slog.String("user_uid", userUID))
	metrics.AllocationsTotal.WithLabelValues("no_capacity").Inc()
	return 0, fmt.Errorf("%s: %w", op, models.ErrNoCapacity)
}
