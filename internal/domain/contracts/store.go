package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hradmin/internal/domain/ctc"
	"hradmin/internal/domain/validation"
	"hradmin/internal/platform/db"
)

const contractColumns = `id, employee_id, contract_type, effective_from, end_date, total_annual_ctc,
  breakdown, manual_overrides, contract_amount, contract_period_months, equivalent_monthly_ctc,
  is_active, created_at, updated_at`

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func scanContract(row pgx.Row) (Contract, error) {
	var c Contract
	var breakdownRaw, overridesRaw []byte
	err := row.Scan(
		&c.ID, &c.EmployeeID, &c.ContractType, &c.EffectiveFrom, &c.EndDate, &c.TotalAnnualCTC,
		&breakdownRaw, &overridesRaw, &c.ContractAmount, &c.ContractPeriodMonths, &c.EquivalentMonthlyCTC,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, ErrContractNotFound
	}
	if err != nil {
		return Contract{}, err
	}
	if err := json.Unmarshal(breakdownRaw, &c.Breakdown); err != nil {
		return Contract{}, fmt.Errorf("decode breakdown of contract %s: %w", c.ID, err)
	}
	c.ManualOverrides = ctc.Overrides{}
	if len(overridesRaw) > 0 {
		if err := json.Unmarshal(overridesRaw, &c.ManualOverrides); err != nil {
			return Contract{}, fmt.Errorf("decode overrides of contract %s: %w", c.ID, err)
		}
	}
	return c, nil
}

func encodeDerived(c Contract) (breakdown, overrides []byte, err error) {
	if c.Breakdown == nil {
		c.Breakdown = ctc.Breakdown{}
	}
	breakdown, err = json.Marshal(c.Breakdown)
	if err != nil {
		return nil, nil, err
	}
	if c.ManualOverrides == nil {
		c.ManualOverrides = ctc.Overrides{}
	}
	overrides, err = json.Marshal(c.ManualOverrides)
	return breakdown, overrides, err
}

func mapWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return validation.Field("effectiveFrom", ErrDuplicateEffectiveDate)
	case db.IsForeignKeyViolation(err):
		return ErrEmployeeNotFound
	}
	return err
}

func (s *Store) EmployeeSummary(ctx context.Context, employeeID string) (EmployeeSummary, error) {
	var e EmployeeSummary
	err := s.DB.QueryRow(ctx, `
    SELECT id, COALESCE(employee_code, ''), full_name, designation, department
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&e.ID, &e.EmployeeCode, &e.FullName, &e.Designation, &e.Department)
	if errors.Is(err, pgx.ErrNoRows) {
		return EmployeeSummary{}, ErrEmployeeNotFound
	}
	return e, err
}

// ListContracts returns the employee's contracts, most recent effective date
// first.
func (s *Store) ListContracts(ctx context.Context, employeeID string) ([]Contract, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+contractColumns+`
    FROM contracts
    WHERE employee_id = $1
    ORDER BY effective_from DESC, created_at DESC
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetContract(ctx context.Context, id string) (Contract, error) {
	return scanContract(s.DB.QueryRow(ctx, `
    SELECT `+contractColumns+`
    FROM contracts
    WHERE id = $1
  `, id))
}

func (s *Store) EffectiveDateTaken(ctx context.Context, employeeID string, effectiveFrom time.Time, excludeID string) (bool, error) {
	var taken bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM contracts
      WHERE employee_id = $1 AND effective_from = $2 AND id::text <> $3
    )
  `, employeeID, effectiveFrom, excludeID).Scan(&taken)
	return taken, err
}

func (s *Store) CreateContract(ctx context.Context, c Contract) (Contract, error) {
	breakdown, overrides, err := encodeDerived(c)
	if err != nil {
		return Contract{}, err
	}
	created, err := scanContract(s.DB.QueryRow(ctx, `
    INSERT INTO contracts (
      employee_id, contract_type, effective_from, end_date, total_annual_ctc,
      breakdown, manual_overrides, contract_amount, contract_period_months,
      equivalent_monthly_ctc, is_active
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    RETURNING `+contractColumns,
		c.EmployeeID, c.ContractType, c.EffectiveFrom, c.EndDate, c.TotalAnnualCTC,
		breakdown, overrides, c.ContractAmount, c.ContractPeriodMonths,
		c.EquivalentMonthlyCTC, c.IsActive,
	))
	if err != nil {
		return Contract{}, mapWriteError(err)
	}
	return created, nil
}

func (s *Store) UpdateContract(ctx context.Context, c Contract) (Contract, error) {
	breakdown, overrides, err := encodeDerived(c)
	if err != nil {
		return Contract{}, err
	}
	updated, err := scanContract(s.DB.QueryRow(ctx, `
    UPDATE contracts
    SET contract_type = $2, effective_from = $3, end_date = $4, total_annual_ctc = $5,
        breakdown = $6, manual_overrides = $7, contract_amount = $8,
        contract_period_months = $9, equivalent_monthly_ctc = $10, is_active = $11,
        updated_at = now()
    WHERE id = $1
    RETURNING `+contractColumns,
		c.ID, c.ContractType, c.EffectiveFrom, c.EndDate, c.TotalAnnualCTC,
		breakdown, overrides, c.ContractAmount, c.ContractPeriodMonths,
		c.EquivalentMonthlyCTC, c.IsActive,
	))
	if err != nil {
		return Contract{}, mapWriteError(err)
	}
	return updated, nil
}

func (s *Store) DeleteContract(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}
