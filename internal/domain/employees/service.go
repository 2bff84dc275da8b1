package employees

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"hradmin/internal/domain/ctc"
	"hradmin/internal/domain/validation"
)

type Service struct {
	store   StoreAPI
	metrics ctc.EngineMetrics
}

func NewService(store StoreAPI, metrics ctc.EngineMetrics) *Service {
	return &Service{store: store, metrics: metrics}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Employee, int, error) {
	return s.store.ListEmployees(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (Employee, error) {
	employee, err := s.prepare(in)
	if err != nil {
		return Employee{}, err
	}
	if err := s.ensureCodeFree(ctx, employee.EmployeeCode, ""); err != nil {
		return Employee{}, err
	}
	return s.store.CreateEmployee(ctx, employee)
}

// Update replaces the profile and salary inputs of an employee.
func (s *Service) Update(ctx context.Context, id string, in Input) (Employee, error) {
	current, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	employee, err := s.prepare(in)
	if err != nil {
		return Employee{}, err
	}
	if employee.EmployeeCode != current.EmployeeCode {
		if err := s.ensureCodeFree(ctx, employee.EmployeeCode, id); err != nil {
			return Employee{}, err
		}
	}
	employee.ID = id
	return s.store.UpdateEmployee(ctx, employee)
}

// Preview reports what a save of the given inputs would derive.
func (s *Service) Preview(in ctc.PayrollInputs) ctc.PayrollDerived {
	return ctc.Recompute(roundInputs(in))
}

// Register returns every employee matching filter, for the salary register.
func (s *Service) Register(ctx context.Context, filter ListFilter) ([]Employee, error) {
	filter.Limit, filter.Offset = 0, 0
	employees, _, err := s.store.ListEmployees(ctx, filter)
	return employees, err
}

func (s *Service) ensureCodeFree(ctx context.Context, code, excludeID string) error {
	if code == "" {
		return nil
	}
	taken, err := s.store.CodeTaken(ctx, code, excludeID)
	if err != nil {
		return fmt.Errorf("check employee code: %w", err)
	}
	if taken {
		return validation.Field("employeeCode", ErrDuplicateEmployeeCode)
	}
	return nil
}

// prepare validates the caller-owned fields and computes the derived ones.
// Inputs are rounded to storage precision first so the derived values match
// what a later read recomputes.
func (s *Service) prepare(in Input) (Employee, error) {
	p := in.Profile
	p.EmployeeCode = strings.TrimSpace(p.EmployeeCode)
	p.FullName = strings.TrimSpace(p.FullName)
	p.OfficialEmail = strings.TrimSpace(p.OfficialEmail)
	p.PersonalEmail = strings.TrimSpace(p.PersonalEmail)
	p.Mobile = strings.TrimSpace(p.Mobile)
	p.Gender = strings.TrimSpace(p.Gender)
	p.Department = strings.TrimSpace(p.Department)
	p.Designation = strings.TrimSpace(p.Designation)
	p.Location = strings.TrimSpace(p.Location)
	p.EmployeeCategory = strings.TrimSpace(p.EmployeeCategory)
	p.ExitStatus = strings.TrimSpace(p.ExitStatus)
	if p.ExitStatus == "" {
		p.ExitStatus = ExitStatusActive
	}
	p.JoiningDate = dateOnly(p.JoiningDate)
	p.SalApplicableFrom = dateOnly(p.SalApplicableFrom)
	p.RevisionDueDate = dateOnly(p.RevisionDueDate)

	var errs validation.Errors
	switch {
	case p.FullName == "":
		errs.Add("fullName", ErrFullNameRequired)
	case utf8.RuneCountInString(p.FullName) > MaxNameLength:
		errs.Add("fullName", ErrFullNameTooLong)
	}
	if len(p.EmployeeCode) > MaxCodeLength {
		errs.Add("employeeCode", ErrCodeTooLong)
	}
	if in.Salary.ContractPeriodMonths < 0 {
		errs.Add("salary.contract_period_months", ErrNegativePeriod)
	}
	if err := errs.Err(); err != nil {
		return Employee{}, err
	}

	salary := roundInputs(in.Salary)
	if s.metrics != nil {
		s.metrics.PayrollRecomputed()
	}
	return Employee{Profile: p, Salary: salary, Derived: ctc.Recompute(salary)}, nil
}

func roundInputs(in ctc.PayrollInputs) ctc.PayrollInputs {
	for _, field := range ctc.PayrollFields {
		field.Set(&in, ctc.RoundAmount(field.Get(in)))
	}
	return in
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day
}
