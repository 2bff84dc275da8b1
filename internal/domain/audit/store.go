package audit

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) InsertEvent(ctx context.Context, event Event) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, event.ActorID, event.Action, event.EntityType, event.EntityID, nullJSON(event.Before), nullJSON(event.After), event.RequestID, event.IP)
	return err
}

func (s *Store) CountEvents(ctx context.Context, filter Filter) (int, error) {
	sqlStr, args, err := applyFilter(psql.Select("COUNT(1)").From("audit_events"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build audit count: %w", err)
	}
	var total int
	if err := s.DB.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListEvents(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query := psql.Select("id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at", "before_json", "after_json").
		From("audit_events")
	sqlStr, args, err := applyFilter(query, filter).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := s.DB.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var evt Event
		var before, after []byte
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt, &before, &after); err != nil {
			return nil, err
		}
		evt.Before, evt.After = before, after
		out = append(out, evt)
	}
	return out, rows.Err()
}

func applyFilter(query sq.SelectBuilder, filter Filter) sq.SelectBuilder {
	if filter.Action != "" {
		query = query.Where(sq.Eq{"action": filter.Action})
	}
	if filter.EntityType != "" {
		query = query.Where(sq.Eq{"entity_type": filter.EntityType})
	}
	if filter.EntityID != "" {
		query = query.Where(sq.Eq{"entity_id": filter.EntityID})
	}
	if filter.ActorID != "" {
		query = query.Where(sq.Eq{"actor_user_id": filter.ActorID})
	}
	return query
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
