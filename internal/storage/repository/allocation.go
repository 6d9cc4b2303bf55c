package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// GetCurrentAllocation возвращает текущую привязку пользователя вместе
// с состоянием её сервера. Если привязки нет, возвращает (nil, nil).
func (s *Storage) GetCurrentAllocation(ctx context.Context, userUID string) (*models.AllocationCheck, error) {
	const op = "storage.GetCurrentAllocation"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT a.server_id, srv.active, srv.capacity,
			      (SELECT COUNT(*) FROM allocations aa WHERE aa.server_id = a.server_id) AS occupancy
			  FROM allocations a
			  JOIN access_servers srv ON srv.id = a.server_id
			  WHERE a.user_uid = $1`
	var check models.AllocationCheck
	var capacity sql.NullInt64
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(
		&check.ServerID, &check.Active, &capacity, &check.Occupancy)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		check.Capacity = &c
	}
	return &check, nil
}

// ListCandidateServers возвращает активные серверы со свободными местами,
// сначала наименее загруженные. При равной занятости первым идёт сервер
// с меньшим ID, поэтому выбор детерминирован.
func (s *Storage) ListCandidateServers(ctx context.Context) ([]*models.ServerOccupancy, error) {
	const op = "storage.ListCandidateServers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.name, s.address, s.capacity, s.active, s.created_at,
			      COUNT(a.user_uid) AS occupancy
			  FROM access_servers s
			  LEFT JOIN allocations a ON a.server_id = s.id
			  WHERE s.active
			  GROUP BY s.id
			  HAVING s.capacity IS NULL OR COUNT(a.user_uid) < s.capacity
			  ORDER BY COUNT(a.user_uid) ASC, s.id ASC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ServerOccupancy
	for rows.Next() {
		var so models.ServerOccupancy
		var capacity sql.NullInt64
		if err = rows.Scan(&so.ID, &so.Name, &so.Address, &capacity,
			&so.Active, &so.CreatedAt, &so.Occupancy); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if capacity.Valid {
			c := int(capacity.Int64)
			so.Capacity = &c
		}
		result = append(result, &so)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// TryAssign привязывает пользователя к серверу, если сервер всё ещё активен
// и на нём остаётся место. Проверка и запись выполняются в одной транзакции
// под блокировкой строки сервера, поэтому лимит не превышается даже при
// одновременных назначениях. Возвращает false, если место уже занято.
func (s *Storage) TryAssign(ctx context.Context, userUID string, serverID int64) (bool, error) {
	const op = "storage.TryAssign"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var capacity sql.NullInt64
	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT capacity, active FROM access_servers WHERE id = $1 FOR UPDATE`,
		serverID).Scan(&capacity, &active)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !active {
		return false, nil
	}

	// Собственная привязка пользователя не считается: перенос на тот же
	// сервер не должен занимать второе место.
	var occupancy int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM allocations WHERE server_id = $1 AND user_uid <> $2`,
		serverID, userUID).Scan(&occupancy)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if capacity.Valid && int64(occupancy) >= capacity.Int64 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO allocations (user_uid, server_id, assigned_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_uid) DO UPDATE
		 SET server_id = EXCLUDED.server_id,
		     assigned_at = now()`,
		userUID, serverID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}
