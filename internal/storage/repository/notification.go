package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// FindExpiringOn возвращает пользователей, чей доступ истекает в указанную
// дату и которым ещё не отправляли напоминание этой вехи. Дата истечения
// сравнивается по календарному дню в UTC.
func (s *Storage) FindExpiringOn(ctx context.Context, milestone string, targetDate time.Time) ([]*models.Reminder, error) {
	const op = "storage.FindExpiringOn"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.uid, u.label, u.email, $1::text AS milestone, e.expires_at
			  FROM entitlements e
			  JOIN users u ON u.uid = e.user_uid
			  WHERE (e.expires_at AT TIME ZONE 'UTC')::date = ($2::timestamptz AT TIME ZONE 'UTC')::date
			    AND e.expires_at > now()
			    AND NOT EXISTS (
			        SELECT 1 FROM notification_records nr
			        WHERE nr.user_uid = e.user_uid
			          AND nr.milestone = $1
			          AND nr.for_date = (e.expires_at AT TIME ZONE 'UTC')::date)`
	rows, err := s.DB.QueryContext(ctx, query, milestone, targetDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Reminder
	for rows.Next() {
		var r models.Reminder
		if err = rows.Scan(&r.UserUID, &r.Label, &r.Email, &r.Milestone, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindExpired возвращает пользователей, чей доступ уже истёк и которым ещё
// не отправляли уведомление об истечении для этой даты срока.
func (s *Storage) FindExpired(ctx context.Context, milestone string) ([]*models.Reminder, error) {
	const op = "storage.FindExpired"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.uid, u.label, u.email, $1::text AS milestone, e.expires_at
			  FROM entitlements e
			  JOIN users u ON u.uid = e.user_uid
			  WHERE e.expires_at <= now()
			    AND NOT EXISTS (
			        SELECT 1 FROM notification_records nr
			        WHERE nr.user_uid = e.user_uid
			          AND nr.milestone = $1
			          AND nr.for_date = (e.expires_at AT TIME ZONE 'UTC')::date)`
	rows, err := s.DB.QueryContext(ctx, query, milestone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Reminder
	for rows.Next() {
		var r models.Reminder
		if err = rows.Scan(&r.UserUID, &r.Label, &r.Email, &r.Milestone, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ClaimNotification фиксирует отправку напоминания по тройке
// (пользователь, веха, дата срока). Возвращает true, если запись создана
// этим вызовом: параллельный обход ту же тройку повторно не займёт.
func (s *Storage) ClaimNotification(ctx context.Context, userUID, milestone string, forDate time.Time) (bool, error) {
	const op = "storage.ClaimNotification"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO notification_records (user_uid, milestone, for_date, sent_at)
			  VALUES ($1, $2, ($3::timestamptz AT TIME ZONE 'UTC')::date, now())
			  ON CONFLICT (user_uid, milestone, for_date) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query, userUID, milestone, forDate)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// ReleaseNotification снимает фиксацию, если отправить напоминание
// не удалось: следующий обход попробует снова.
func (s *Storage) ReleaseNotification(ctx context.Context, userUID, milestone string, forDate time.Time) error {
	const op = "storage.ReleaseNotification"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM notification_records
			  WHERE user_uid = $1 AND milestone = $2 AND for_date = ($3::timestamptz AT TIME ZONE 'UTC')::date`
	_, err := s.DB.ExecContext(ctx, query, userUID, milestone, forDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
