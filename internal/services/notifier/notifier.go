// Package notifier реализует периодический обход леджера и отправку
// напоминаний об окончании доступа.
//
// По каждой тройке (пользователь, веха, дата окончания) уходит не более
// одного напоминания. Дедупликацию обеспечивает уникальная запись в
// хранилище, а не расписание запусков: обходы могут накладываться,
// пропускаться и перезапускаться без двойных отправок.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/access-engine/internal/lib/milestone"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/metrics"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// LedgerRepository описывает выборки истекающих доступов и фиксацию отправок.
type LedgerRepository interface {
	// FindExpiringOn возвращает доступы, истекающие в заданную дату,
	// без уже отправленного напоминания этой вехи.
	FindExpiringOn(ctx context.Context, milestone string, targetDate time.Time) ([]*models.Reminder, error)
	// FindExpired возвращает уже истёкшие доступы без напоминания вехи.
	FindExpired(ctx context.Context, milestone string) ([]*models.Reminder, error)
	// ClaimNotification фиксирует отправку, true — тройка занята этим вызовом.
	ClaimNotification(ctx context.Context, userUID, milestone string, forDate time.Time) (bool, error)
	// ReleaseNotification снимает фиксацию после неудачной отправки.
	ReleaseNotification(ctx context.Context, userUID, milestone string, forDate time.Time) error
}

// Sender передаёт напоминание в конвейер доставки.
type Sender interface {
	Publish(reminder *models.Reminder) error
}

// NotifierService обходит леджер и публикует напоминания.
type NotifierService struct {
	repo   LedgerRepository
	sender Sender
	log    *slog.Logger
}

// NewNotifierService создает новый экземпляр NotifierService.
func NewNotifierService(repo LedgerRepository, sender Sender, log *slog.Logger) *NotifierService {
	return &NotifierService{
		repo:   repo,
		sender: sender,
		log:    log,
	}
}

// Run выполняет обход сразу при старте, затем по тикеру с заданным
// интервалом до отмены контекста. Эксклюзивность запусков не нужна:
// два одновременных обхода не отправят тройку дважды.
func (s *NotifierService) Run(ctx context.Context, interval time.Duration) {
	s.RunOnce(ctx, time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx, time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce выполняет один обход по всем вехам. Ошибки отдельных пользователей
// логируются и не прерывают обход: недоставленные напоминания подберёт
// следующий запуск.
func (s *NotifierService) RunOnce(ctx context.Context, now time.Time) {
	s.log.Info("starting expiry scan")

	for _, m := range milestone.Upcoming() {
		reminders, err := s.repo.FindExpiringOn(ctx, string(m), m.TargetDate(now))
		if err != nil {
			s.log.Error("failed to find expiring entitlements",
				slog.String("milestone", string(m)), sl.Err(err))
			continue
		}
		s.dispatch(ctx, m, reminders)
	}

	expired, err := s.repo.FindExpired(ctx, string(milestone.Expired))
	if err != nil {
		s.log.Error("failed to find expired entitlements", sl.Err(err))
		return
	}
	s.dispatch(ctx, milestone.Expired, expired)
}

func (s *NotifierService) dispatch(ctx context.Context, m milestone.Milestone, reminders []*models.Reminder) {
	if len(reminders) == 0 {
		return
	}
	s.log.Info("found entitlements to remind",
		slog.String("milestone", string(m)), slog.Int("count", len(reminders)))

	for _, reminder := range reminders {
		forDate := milestone.Truncate(reminder.ExpiresAt)

		// Сначала занимаем тройку, потом публикуем: параллельный обход,
		// увидевший ту же выборку, не отправит напоминание второй раз.
		claimed, err := s.repo.ClaimNotification(ctx, reminder.UserUID, string(m), forDate)
		if err != nil {
			s.log.Error("failed to claim notification",
				slog.String("user_uid", reminder.UserUID), sl.Err(err))
			continue
		}
		if !claimed {
			continue
		}

		if err := s.sender.Publish(reminder); err != nil {
			s.log.Error("failed to publish reminder",
				slog.String("user_uid", reminder.UserUID),
				slog.String("milestone", string(m)), sl.Err(err))
			// Освобождаем тройку, чтобы следующий обход повторил отправку.
			if relErr := s.repo.ReleaseNotification(ctx, reminder.UserUID, string(m), forDate); relErr != nil {
				s.log.Error("failed to release notification claim",
					slog.String("user_uid", reminder.UserUID), sl.Err(relErr))
			}
			continue
		}
		metrics.NotificationsSentTotal.WithLabelValues(string(m)).Inc()
	}
}
