package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// CreateServer добавляет сервер доступа в пул и возвращает его ID.
func (s *Storage) CreateServer(ctx context.Context, server models.AccessServer) (int64, error) {
	const op = "storage.CreateServer"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO access_servers (name, address, capacity, active)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		server.Name, server.Address, server.Capacity, server.Active).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// UpdateServer меняет активность и вместимость сервера, nil-поля не трогаются.
// Unlimited = true сбрасывает capacity в NULL: лимит снимается полностью.
// Возвращает количество изменённых строк.
func (s *Storage) UpdateServer(ctx context.Context, id int64, req models.DummyServerUpdate) (int, error) {
	const op = "storage.UpdateServer"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	unlimited := req.Unlimited != nil && *req.Unlimited
	query := `UPDATE access_servers
			  SET active = COALESCE($2, active),
			      capacity = CASE WHEN $4 THEN NULL ELSE COALESCE($3, capacity) END
			  WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id, req.Active, req.Capacity, unlimited)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListServersWithOccupancy возвращает весь пул серверов вместе с текущей
// занятостью, включая выключенные серверы.
func (s *Storage) ListServersWithOccupancy(ctx context.Context) ([]*models.ServerOccupancy, error) {
	const op = "storage.ListServersWithOccupancy"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.name, s.address, s.capacity, s.active, s.created_at,
			      COUNT(a.user_uid) AS occupancy
			  FROM access_servers s
			  LEFT JOIN allocations a ON a.server_id = s.id
			  GROUP BY s.id
			  ORDER BY s.id`
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
