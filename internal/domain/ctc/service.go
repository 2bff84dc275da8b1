package ctc

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"hradmin/internal/domain/ctc/formula"
	"hradmin/internal/domain/validation"
)

// ComponentInput is a full component definition as submitted by HR.
type ComponentInput struct {
	Code            string `json:"code" validate:"required,max=20"`
	Name            string `json:"name" validate:"required,max=100"`
	Formula         string `json:"formula"`
	Order           *int   `json:"order" validate:"omitempty,min=0"`
	IsActive        *bool  `json:"isActive"`
	ShowInDocuments *bool  `json:"showInDocuments"`
	Category        string `json:"category" validate:"omitempty,oneof=Earning Deduction Contribution Reimbursement Bonus Other"`
	IsAnnual        bool   `json:"isAnnual"`
	Description     string `json:"description" validate:"max=300"`
}

// ComponentPatch changes only the fields that are set.
type ComponentPatch struct {
	Code            *string `json:"code" validate:"omitempty,max=20"`
	Name            *string `json:"name" validate:"omitempty,max=100"`
	Formula         *string `json:"formula"`
	Order           *int    `json:"order" validate:"omitempty,min=0"`
	IsActive        *bool   `json:"isActive"`
	ShowInDocuments *bool   `json:"showInDocuments"`
	Category        *string `json:"category" validate:"omitempty,oneof=Earning Deduction Contribution Reimbursement Bonus Other"`
	IsAnnual        *bool   `json:"isAnnual"`
	Description     *string `json:"description" validate:"omitempty,max=300"`
}

type Service struct {
	store   StoreAPI
	metrics EngineMetrics
}

func NewService(store StoreAPI, metrics EngineMetrics) *Service {
	return &Service{store: store, metrics: metrics}
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]Component, error) {
	return s.store.ListComponents(ctx, includeInactive)
}

func (s *Service) Get(ctx context.Context, id string) (Component, error) {
	return s.store.GetComponent(ctx, id)
}

// RuleTable reads the active components from storage. It is never cached:
// every calculation sees the table as it is at that moment.
func (s *Service) RuleTable(ctx context.Context) (RuleTable, error) {
	components, err := s.store.ListComponents(ctx, false)
	if err != nil {
		return RuleTable{}, fmt.Errorf("load rule table: %w", err)
	}
	return NewRuleTable(components), nil
}

func (s *Service) Create(ctx context.Context, in ComponentInput) (Component, error) {
	component := Component{
		Code:            NormalizeCode(in.Code),
		Name:            strings.TrimSpace(in.Name),
		Formula:         strings.TrimSpace(in.Formula),
		Order:           DefaultOrder,
		IsActive:        true,
		ShowInDocuments: true,
		Category:        strings.TrimSpace(in.Category),
		IsAnnual:        in.IsAnnual,
		Description:     strings.TrimSpace(in.Description),
	}
	if in.Order != nil {
		component.Order = *in.Order
	}
	if in.IsActive != nil {
		component.IsActive = *in.IsActive
	}
	if in.ShowInDocuments != nil {
		component.ShowInDocuments = *in.ShowInDocuments
	}
	if component.Category == "" {
		component.Category = CategoryEarning
	}

	if err := validateComponent(component); err != nil {
		return Component{}, err
	}
	if err := s.ensureCodeFree(ctx, component.Code, ""); err != nil {
		return Component{}, err
	}
	return s.store.CreateComponent(ctx, component)
}

func (s *Service) Update(ctx context.Context, id string, patch ComponentPatch) (Component, error) {
	component, err := s.store.GetComponent(ctx, id)
	if err != nil {
		return Component{}, err
	}
	previousCode := component.Code

	if patch.Code != nil {
		component.Code = NormalizeCode(*patch.Code)
	}
	if patch.Name != nil {
		component.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Formula != nil {
		component.Formula = strings.TrimSpace(*patch.Formula)
	}
	if patch.Order != nil {
		component.Order = *patch.Order
	}
	if patch.IsActive != nil {
		component.IsActive = *patch.IsActive
	}
	if patch.ShowInDocuments != nil {
		component.ShowInDocuments = *patch.ShowInDocuments
	}
	if patch.Category != nil {
		component.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.IsAnnual != nil {
		component.IsAnnual = *patch.IsAnnual
	}
	if patch.Description != nil {
		component.Description = strings.TrimSpace(*patch.Description)
	}

	if err := validateComponent(component); err != nil {
		return Component{}, err
	}
	if component.Code != previousCode {
		if err := s.ensureCodeFree(ctx, component.Code, component.ID); err != nil {
			return Component{}, err
		}
	}
	return s.store.UpdateComponent(ctx, component)
}

// Delete deactivates the component. The row stays so historical breakdowns
// keep a name for the code and the code stays reserved.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeactivateComponent(ctx, id)
}

// Preview runs the current rule table without persisting anything.
func (s *Service) Preview(ctx context.Context, totalAnnualCTC decimal.Decimal, overrides Overrides) (Calculation, error) {
	table, err := s.RuleTable(ctx)
	if err != nil {
		return Calculation{}, err
	}
	calc := Calculate(table, totalAnnualCTC, overrides.Normalize())
	if s.metrics != nil {
		s.metrics.BreakdownComputed(len(calc.Fallbacks))
	}
	return calc, nil
}

// Lint reports formula problems in the active rule table.
func (s *Service) Lint(ctx context.Context) ([]Issue, error) {
	table, err := s.RuleTable(ctx)
	if err != nil {
		return nil, err
	}
	return table.Lint(), nil
}

func (s *Service) ensureCodeFree(ctx context.Context, code, excludeID string) error {
	taken, err := s.store.CodeTaken(ctx, code, excludeID)
	if err != nil {
		return fmt.Errorf("check component code: %w", err)
	}
	if taken {
		return validation.Field("code", ErrDuplicateCode)
	}
	return nil
}

func validateComponent(c Component) error {
	var errs validation.Errors
	errs.Add("code", ValidateCode(c.Code))
	if c.Name == "" {
		errs.Add("name", ErrNameRequired)
	} else if utf8.RuneCountInString(c.Name) > MaxNameLength {
		errs.Add("name", ErrNameTooLong)
	}
	if c.Order < 0 {
		errs.Add("order", ErrNegativeOrder)
	}
	if !ValidCategory(c.Category) {
		errs.Add("category", ErrInvalidCategory)
	}
	if utf8.RuneCountInString(c.Description) > MaxDescriptionLength {
		errs.Add("description", ErrDescriptionLength)
	}
	return errs.Err()
}

// FormulaWarning describes a syntax problem in the component's formula, or
// returns "" when it parses. Saving is never blocked by it.
func FormulaWarning(c Component) string {
	if err := formula.Check(c.Formula); err != nil {
		return err.Error()
	}
	return ""
}
