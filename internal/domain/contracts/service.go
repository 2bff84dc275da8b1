package contracts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hradmin/internal/domain/ctc"
	"hradmin/internal/domain/validation"
)

type Service struct {
	store      StoreAPI
	components ComponentSource
	metrics    ctc.EngineMetrics
}

func NewService(store StoreAPI, components ComponentSource, metrics ctc.EngineMetrics) *Service {
	return &Service{store: store, components: components, metrics: metrics}
}

func (s *Service) List(ctx context.Context, employeeID string) ([]Contract, error) {
	if _, err := s.store.EmployeeSummary(ctx, employeeID); err != nil {
		return nil, err
	}
	return s.store.ListContracts(ctx, employeeID)
}

func (s *Service) Get(ctx context.Context, id string) (Contract, error) {
	return s.store.GetContract(ctx, id)
}

func (s *Service) Create(ctx context.Context, employeeID string, in ContractInput) (Contract, error) {
	if _, err := s.store.EmployeeSummary(ctx, employeeID); err != nil {
		return Contract{}, err
	}
	contract := Contract{EmployeeID: employeeID, IsActive: true}
	if err := apply(&contract, in); err != nil {
		return Contract{}, err
	}
	if err := s.ensureDateFree(ctx, contract); err != nil {
		return Contract{}, err
	}
	if err := s.compute(ctx, &contract); err != nil {
		return Contract{}, err
	}

	created, err := s.store.CreateContract(ctx, contract)
	if err != nil {
		return Contract{}, err
	}
	created.Fallbacks = contract.Fallbacks
	return created, nil
}

// Update replaces the caller-owned fields and recomputes the breakdown
// against the rule table as it is now.
func (s *Service) Update(ctx context.Context, id string, in ContractInput) (Contract, error) {
	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	if err := apply(&contract, in); err != nil {
		return Contract{}, err
	}
	if err := s.ensureDateFree(ctx, contract); err != nil {
		return Contract{}, err
	}
	return s.save(ctx, contract)
}

// Recalculate recomputes a stored contract from its own inputs, picking up
// rule-table edits made since it was saved.
func (s *Service) Recalculate(ctx context.Context, id string) (Contract, error) {
	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	return s.save(ctx, contract)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteContract(ctx, id)
}

func (s *Service) save(ctx context.Context, contract Contract) (Contract, error) {
	if err := s.compute(ctx, &contract); err != nil {
		return Contract{}, err
	}
	updated, err := s.store.UpdateContract(ctx, contract)
	if err != nil {
		return Contract{}, err
	}
	updated.Fallbacks = contract.Fallbacks
	return updated, nil
}

// compute derives the breakdown and the equivalent monthly CTC. The rule
// table is loaded fresh for every call.
func (s *Service) compute(ctx context.Context, contract *Contract) error {
	table, err := s.components.RuleTable(ctx)
	if err != nil {
		return err
	}
	calc := ctc.Calculate(table, contract.TotalAnnualCTC, contract.ManualOverrides)
	contract.Breakdown = calc.Breakdown
	contract.Fallbacks = calc.Fallbacks
	if s.metrics != nil {
		s.metrics.BreakdownComputed(len(calc.Fallbacks))
	}

	months := 0
	if contract.ContractPeriodMonths != nil {
		months = *contract.ContractPeriodMonths
	}
	amount := decimal.Zero
	if contract.ContractAmount.Valid {
		amount = contract.ContractAmount.Decimal
	}
	monthly, _ := ctc.FixedTermMonthly(amount, months)
	contract.EquivalentMonthlyCTC = ctc.RoundAmount(monthly)
	return nil
}

func (s *Service) ensureDateFree(ctx context.Context, contract Contract) error {
	taken, err := s.store.EffectiveDateTaken(ctx, contract.EmployeeID, contract.EffectiveFrom, contract.ID)
	if err != nil {
		return fmt.Errorf("check effective date: %w", err)
	}
	if taken {
		return validation.Field("effectiveFrom", ErrDuplicateEffectiveDate)
	}
	return nil
}

func apply(contract *Contract, in ContractInput) error {
	contractType := strings.TrimSpace(in.ContractType)
	if contractType == "" {
		contractType = TypeFullTime
	}

	var errs validation.Errors
	if !ValidContractType(contractType) {
		errs.Add("contractType", ErrInvalidContractType)
	}
	if in.EffectiveFrom.IsZero() {
		errs.Add("effectiveFrom", ErrEffectiveFromRequired)
	}
	effectiveFrom := dateOnly(in.EffectiveFrom)
	var endDate *time.Time
	if in.EndDate != nil && !in.EndDate.IsZero() {
		end := dateOnly(*in.EndDate)
		endDate = &end
		if !in.EffectiveFrom.IsZero() && end.Before(effectiveFrom) {
			errs.Add("endDate", ErrEndBeforeStart)
		}
	}
	if in.TotalAnnualCTC.IsNegative() {
		errs.Add("totalAnnualCtc", ErrNegativeAmount)
	}
	if in.ContractAmount.Valid && in.ContractAmount.Decimal.IsNegative() {
		errs.Add("contractAmount", ErrNegativeAmount)
	}
	if in.ContractPeriodMonths != nil && *in.ContractPeriodMonths < 0 {
		errs.Add("contractPeriodMonths", ErrNegativePeriod)
	}
	if err := errs.Err(); err != nil {
		return err
	}

	contract.ContractType = contractType
	contract.EffectiveFrom = effectiveFrom
	contract.EndDate = endDate
	contract.TotalAnnualCTC = ctc.RoundAmount(in.TotalAnnualCTC)
	contract.ManualOverrides = in.ManualOverrides.Normalize()
	contract.ContractAmount = in.ContractAmount
	if contract.ContractAmount.Valid {
		contract.ContractAmount.Decimal = ctc.RoundAmount(contract.ContractAmount.Decimal)
	}
	contract.ContractPeriodMonths = in.ContractPeriodMonths
	if in.IsActive != nil {
		contract.IsActive = *in.IsActive
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
