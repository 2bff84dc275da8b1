package employees

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hradmin/internal/domain/ctc"
	"hradmin/internal/domain/validation"
	"hradmin/internal/platform/db"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var profileColumns = []string{
	"employee_code", "full_name", "official_email", "personal_email", "mobile", "gender",
	"department", "designation", "location", "employee_category", "joining_date",
	"exit_status", "sal_applicable_from", "revision_due_date",
}

var derivedColumns = []string{
	"gross_monthly", "monthly_ctc", "gratuity", "annual_ctc", "equivalent_monthly_ctc",
}

// writableColumns are every column a save writes, in scan order after id.
var writableColumns = func() []string {
	cols := append([]string{}, profileColumns...)
	for _, field := range ctc.PayrollFields {
		cols = append(cols, field.Key)
	}
	cols = append(cols, ctc.FieldContractPeriodMonths)
	return append(cols, derivedColumns...)
}()

var employeeColumns = "id, " + strings.Join(writableColumns, ", ") + ", created_at, updated_at"

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func scanEmployee(row pgx.Row, extra ...any) (Employee, error) {
	var e Employee
	var code *string
	dest := []any{
		&e.ID, &code, &e.FullName, &e.OfficialEmail, &e.PersonalEmail, &e.Mobile, &e.Gender,
		&e.Department, &e.Designation, &e.Location, &e.EmployeeCategory, &e.JoiningDate,
		&e.ExitStatus, &e.SalApplicableFrom, &e.RevisionDueDate,
	}
	for _, field := range ctc.PayrollFields {
		dest = append(dest, field.Ptr(&e.Salary))
	}
	dest = append(dest,
		&e.Salary.ContractPeriodMonths,
		&e.Derived.GrossMonthly, &e.Derived.MonthlyCTC, &e.Derived.Gratuity,
		&e.Derived.AnnualCTC, &e.Derived.EquivalentMonthlyCTC,
		&e.CreatedAt, &e.UpdatedAt,
	)
	dest = append(dest, extra...)

	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	if code != nil {
		e.EmployeeCode = *code
	}
	// Monthly bonus is reported but not stored.
	e.Derived.MonthlyBonus = ctc.Recompute(e.Salary).MonthlyBonus
	return e, nil
}

func writeValues(e Employee) map[string]any {
	var code any
	if e.EmployeeCode != "" {
		code = e.EmployeeCode
	}
	values := map[string]any{
		"employee_code":       code,
		"full_name":           e.FullName,
		"official_email":      e.OfficialEmail,
		"personal_email":      e.PersonalEmail,
		"mobile":              e.Mobile,
		"gender":              e.Gender,
		"department":          e.Department,
		"designation":         e.Designation,
		"location":            e.Location,
		"employee_category":   e.EmployeeCategory,
		"joining_date":        e.JoiningDate,
		"exit_status":         e.ExitStatus,
		"sal_applicable_from": e.SalApplicableFrom,
		"revision_due_date":   e.RevisionDueDate,

		ctc.FieldContractPeriodMonths: e.Salary.ContractPeriodMonths,

		"gross_monthly":          e.Derived.GrossMonthly,
		"monthly_ctc":            e.Derived.MonthlyCTC,
		"gratuity":               e.Derived.Gratuity,
		"annual_ctc":             e.Derived.AnnualCTC,
		"equivalent_monthly_ctc": e.Derived.EquivalentMonthlyCTC,
	}
	for _, field := range ctc.PayrollFields {
		values[field.Key] = field.Get(e.Salary)
	}
	return values
}

func mapWriteError(err error) error {
	if db.IsUniqueViolation(err) {
		return validation.Field("employeeCode", ErrDuplicateEmployeeCode)
	}
	return err
}

func applyFilter(query sq.SelectBuilder, filter ListFilter) sq.SelectBuilder {
	if filter.Department != "" {
		query = query.Where(sq.Eq{"department": filter.Department})
	}
	if filter.Designation != "" {
		query = query.Where(sq.Eq{"designation": filter.Designation})
	}
	if filter.Category != "" {
		query = query.Where(sq.Eq{"employee_category": filter.Category})
	}
	if filter.ExitStatus != "" {
		query = query.Where(sq.Eq{"exit_status": filter.ExitStatus})
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + q + "%"
		query = query.Where(sq.Or{
			sq.ILike{"employee_code": pattern},
			sq.ILike{"full_name": pattern},
			sq.ILike{"official_email": pattern},
			sq.ILike{"personal_email": pattern},
			sq.ILike{"mobile": pattern},
		})
	}
	return query
}

// ListEmployees returns one page of matching employees, most recent joiners
// first, and the total number of matches. A zero limit returns every match.
func (s *Store) ListEmployees(ctx context.Context, filter ListFilter) ([]Employee, int, error) {
	countSQL, countArgs, err := applyFilter(psql.Select("COUNT(1)").From("employees"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build employee count: %w", err)
	}
	var total int
	if err := s.DB.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := applyFilter(psql.Select(employeeColumns).From("employees"), filter).
		OrderBy("joining_date DESC NULLS LAST", "full_name", "id")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build employee query: %w", err)
	}

	rows, err := s.DB.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, id string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE id = $1
  `, id))
}

func (s *Store) CodeTaken(ctx context.Context, code, excludeID string) (bool, error) {
	query := psql.Select("1").From("employees").Where(sq.Eq{"employee_code": code})
	if excludeID != "" {
		query = query.Where(sq.NotEq{"id": excludeID})
	}
	sqlStr, args, err := query.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build employee code check: %w", err)
	}
	var taken bool
	err = s.DB.QueryRow(ctx, sqlStr, args...).Scan(&taken)
	return taken, err
}

func (s *Store) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	sqlStr, args, err := psql.Insert("employees").
		SetMap(writeValues(e)).
		Suffix("RETURNING " + employeeColumns).
		ToSql()
	if err != nil {
		return Employee{}, fmt.Errorf("build employee insert: %w", err)
	}
	created, err := scanEmployee(s.DB.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return Employee{}, mapWriteError(err)
	}
	return created, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, e Employee) (Employee, error) {
	sqlStr, args, err := psql.Update("employees").
		SetMap(writeValues(e)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": e.ID}).
		Suffix("RETURNING " + employeeColumns).
		ToSql()
	if err != nil {
		return Employee{}, fmt.Errorf("build employee update: %w", err)
	}
	updated, err := scanEmployee(s.DB.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return Employee{}, mapWriteError(err)
	}
	return updated, nil
}

func (s *Store) UpsertByCode(ctx context.Context, e Employee) (Employee, bool, error) {
	assignments := make([]string, 0, len(writableColumns))
	for _, col := range writableColumns {
		if col == "employee_code" {
			continue
		}
		assignments = append(assignments, col+" = EXCLUDED."+col)
	}
	sqlStr, args, err := psql.Insert("employees").
		SetMap(writeValues(e)).
		Suffix("ON CONFLICT (employee_code) WHERE employee_code IS NOT NULL DO UPDATE SET " +
			strings.Join(assignments, ", ") + ", updated_at = now() " +
			"RETURNING " + employeeColumns + ", (xmax = 0)").
		ToSql()
	if err != nil {
		return Employee{}, false, fmt.Errorf("build employee upsert: %w", err)
	}
	var inserted bool
	saved, err := scanEmployee(s.DB.QueryRow(ctx, sqlStr, args...), &inserted)
	if err != nil {
		return Employee{}, false, mapWriteError(err)
	}
	return saved, inserted, nil
}
