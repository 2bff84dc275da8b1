package ctc

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hradmin/internal/platform/db"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const componentColumns = `id, code, name, formula, sort_order, is_active, show_in_documents,
  category, is_annual, description, created_at, updated_at`

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func scanComponent(row pgx.Row) (Component, error) {
	var c Component
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Formula, &c.Order, &c.IsActive, &c.ShowInDocuments,
		&c.Category, &c.IsAnnual, &c.Description, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Component{}, ErrComponentNotFound
	}
	return c, err
}

func (s *Store) ListComponents(ctx context.Context, includeInactive bool) ([]Component, error) {
	query := psql.Select(componentColumns).From("ctc_components")
	if !includeInactive {
		query = query.Where(sq.Eq{"is_active": true})
	}
	sqlStr, args, err := query.OrderBy("sort_order", "name", "code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build component query: %w", err)
	}

	rows, err := s.DB.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Component, 0)
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetComponent(ctx context.Context, id string) (Component, error) {
	return scanComponent(s.DB.QueryRow(ctx, `
    SELECT `+componentColumns+`
    FROM ctc_components
    WHERE id = $1
  `, id))
}

// CodeTaken checks uniqueness across active and inactive rows.
func (s *Store) CodeTaken(ctx context.Context, code, excludeID string) (bool, error) {
	query := psql.Select("1").From("ctc_components").Where(sq.Eq{"code": code})
	if excludeID != "" {
		query = query.Where(sq.NotEq{"id": excludeID})
	}
	sqlStr, args, err := query.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, err
	}
	var taken bool
	err = s.DB.QueryRow(ctx, sqlStr, args...).Scan(&taken)
	return taken, err
}

func (s *Store) CreateComponent(ctx context.Context, c Component) (Component, error) {
	created, err := scanComponent(s.DB.QueryRow(ctx, `
    INSERT INTO ctc_components (code, name, formula, sort_order, is_active, show_in_documents, category, is_annual, description)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    RETURNING `+componentColumns,
		c.Code, c.Name, c.Formula, c.Order, c.IsActive, c.ShowInDocuments, c.Category, c.IsAnnual, c.Description,
	))
	if db.IsUniqueViolation(err) {
		return Component{}, ErrDuplicateCode
	}
	return created, err
}

func (s *Store) UpdateComponent(ctx context.Context, c Component) (Component, error) {
	updated, err := scanComponent(s.DB.QueryRow(ctx, `
    UPDATE ctc_components
    SET code = $2, name = $3, formula = $4, sort_order = $5, is_active = $6,
        show_in_documents = $7, category = $8, is_annual = $9, description = $10,
        updated_at = now()
    WHERE id = $1
    RETURNING `+componentColumns,
		c.ID, c.Code, c.Name, c.Formula, c.Order, c.IsActive, c.ShowInDocuments, c.Category, c.IsAnnual, c.Description,
	))
	if db.IsUniqueViolation(err) {
		return Component{}, ErrDuplicateCode
	}
	return updated, err
}

func (s *Store) DeactivateComponent(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE ctc_components
    SET is_active = FALSE, updated_at = now()
    WHERE id = $1
  `, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrComponentNotFound
	}
	return nil
}
