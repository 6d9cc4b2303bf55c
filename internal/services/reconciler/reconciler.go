// Package reconciler сводит подтверждения оплаты от независимых каналов
// в ровно одно зачисление на покупку.
//
// Каналы доставляют подтверждение минимум один раз и могут повторять его
// сколько угодно. Ворота идемпотентности — условный переход статуса покупки
// по order_id: продление леджера выполняет только тот вызов, который
// совершил переход. Если продление упало уже после перехода, покупка
// остаётся подтверждённой без зачисления — такую дыру закрывает ремонтный
// проход RepairGaps, автоматических повторов нет.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/metrics"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// PurchaseRepository описывает операции хранилища над покупками.
type PurchaseRepository interface {
	// CreatePurchase регистрирует покупку со статусом pending,
	// повтор того же order_id — no-op.
	CreatePurchase(ctx context.Context, p models.Purchase) (bool, error)
	// ConfirmPurchase атомарно переводит покупку в confirmed,
	// true — переход совершил этот вызов.
	ConfirmPurchase(ctx context.Context, c models.Confirmation) (bool, error)
	// MarkCredited отмечает зачисление подтверждённой покупки.
	MarkCredited(ctx context.Context, orderID string) (int, error)
	// FailPurchase переводит ожидающую покупку в failed.
	FailPurchase(ctx context.Context, orderID string) (int, error)
	// ListUncreditedPurchases возвращает подтверждённые покупки без зачисления.
	ListUncreditedPurchases(ctx context.Context) ([]*models.Purchase, error)
}

// Ledger продлевает доступ пользователя.
type Ledger interface {
	Extend(ctx context.Context, userUID, planCode string) (time.Time, error)
}

// Balancer выдаёт пользователю сервер доступа.
type Balancer interface {
	EnsureAssigned(ctx context.Context, userUID string) (int64, error)
}

// Catalog возвращает тариф по коду либо models.ErrUnknownPlan.
type Catalog interface {
	Get(code string) (models.Plan, error)
}

// ReconcilerService применяет подтверждения оплаты к леджеру ровно один раз.
type ReconcilerService struct {
	repo     PurchaseRepository
	ledger   Ledger
	balancer Balancer
	catalog  Catalog
	log      *slog.Logger
}

// NewReconcilerService создает новый экземпляр ReconcilerService.
func NewReconcilerService(repo PurchaseRepository, ledger Ledger, balancer Balancer, catalog Catalog, log *slog.Logger) *ReconcilerService {
	return &ReconcilerService{
		repo:     repo,
		ledger:   ledger,
		balancer: balancer,
		catalog:  catalog,
		log:      log,
	}
}

// OpenPurchase регистрирует новую покупку со статусом pending и свежим
// order_id, цена берётся из каталога. Возвращённый order_id — ключ
// идемпотентности для последующих подтверждений.
func (s *ReconcilerService) OpenPurchase(ctx context.Context, userUID, planCode string) (*models.Purchase, error) {
	const op = "reconciler.OpenPurchase"

	plan, err := s.catalog.Get(planCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	purchase := models.Purchase{
		OrderID:       uuid.New().String(),
		UserUID:       userUID,
		PlanCode:      plan.Code,
		AmountKopecks: plan.PriceKopecks,
		Currency:      plan.Currency,
		Status:        models.PurchasePending,
	}
	if _, err := s.repo.CreatePurchase(ctx, purchase); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("purchase opened",
		slog.String("order_id", purchase.OrderID),
		slog.String("user_uid", userUID),
		slog.String("plan_code", plan.Code))
	return &purchase, nil
}

// RecordConfirmation применяет подтверждение оплаты. Возвращает applied=false
// без ошибки, если покупка уже была подтверждена: для канала повторная
// доставка выглядит как успех. Зачисление выполняется только после перехода
// статуса, поэтому N одинаковых подтверждений дают ровно одно продление.
func (s *ReconcilerService) RecordConfirmation(ctx context.Context, c models.Confirmation) (bool, error) {
	const op = "reconciler.RecordConfirmation"

	if _, err := s.catalog.Get(c.PlanCode); err != nil {
		metrics.ConfirmationsTotal.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("%s: %w", op, err)
	}

	transitioned, err := s.repo.ConfirmPurchase(ctx, c)
	if err != nil {
		metrics.ConfirmationsTotal.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !transitioned {
		s.log.Info("duplicate confirmation ignored",
			slog.String("order_id", c.OrderID),
			slog.String("channel", c.Channel))
		metrics.ConfirmationsTotal.WithLabelValues("duplicate").Inc()
		return false, nil
	}

	if _, err := s.ledger.Extend(ctx, c.UserUID, c.PlanCode); err != nil {
		// Статус уже confirmed, а зачисления нет: повторять вслепую нельзя,
		// дыру закрывает ремонтный проход.
		s.log.Error("reconciliation gap: confirmed purchase not credited",
			slog.String("order_id", c.OrderID),
			slog.String("user_uid", c.UserUID),
			sl.Err(err))
		metrics.ReconciliationGapsTotal.Inc()
		metrics.ConfirmationsTotal.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.repo.MarkCredited(ctx, c.OrderID); err != nil {
		// Зачисление прошло, не прошла только отметка: ремонтный проход
		// увидит покупку как дыру и повторит продление.
		s.log.Error("failed to mark purchase credited",
			slog.String("order_id", c.OrderID), sl.Err(err))
	}

	if _, err := s.balancer.EnsureAssigned(ctx, c.UserUID); err != nil {
		if !errors.Is(err, models.ErrNoCapacity) {
			metrics.ConfirmationsTotal.WithLabelValues("applied").Inc()
			return true, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Warn("entitlement credited but no server capacity",
			slog.String("user_uid", c.UserUID))
	}

	s.log.Info("confirmation applied",
		slog.String("order_id", c.OrderID),
		slog.String("channel", c.Channel))
	metrics.ConfirmationsTotal.WithLabelValues("applied").Inc()
	return true, nil
}

// Fail переводит ожидающую покупку в failed. Подтверждённая покупка
// в failed не переводится, такой вызов — no-op.
func (s *ReconcilerService) Fail(ctx context.Context, orderID string) error {
	const op = "reconciler.Fail"
	if _, err := s.repo.FailPurchase(ctx, orderID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RepairGaps повторяет зачисление для подтверждённых покупок без отметки
// credited_at и возвращает закрытые дыры. Запускается оператором, не по
// расписанию: перед повтором оператор разбирается, почему упал первый заход.
func (s *ReconcilerService) RepairGaps(ctx context.Context) ([]*models.Purchase, error) {
	const op = "reconciler.RepairGaps"

	uncredited, err := s.repo.ListUncreditedPurchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var repaired []*models.Purchase
	for _, purchase := range uncredited {
		if _, err := s.ledger.Extend(ctx, purchase.UserUID, purchase.PlanCode); err != nil {
			s.log.Error("repair failed for purchase",
				slog.String("order_id", purchase.OrderID), sl.Err(err))
			continue
		}
		if _, err := s.repo.MarkCredited(ctx, purchase.OrderID); err != nil {
			s.log.Error("repair: failed to mark purchase credited",
				slog.String("order_id", purchase.OrderID), sl.Err(err))
			continue
		}
		if _, err := s.balancer.EnsureAssigned(ctx, purchase.UserUID); err != nil &&
			!errors.Is(err, models.ErrNoCapacity) {
			s.log.Error("repair: allocation failed",
				slog.String("user_uid", purchase.UserUID), sl.Err(err))
		}
		s.log.Info("reconciliation gap repaired", slog.String("order_id", purchase.OrderID))
		repaired = append(repaired, purchase)
	}
	return repaired, nil
}
