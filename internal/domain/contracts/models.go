package contracts

import (
	"time"

	"github.com/shopspring/decimal"

	"hradmin/internal/domain/ctc"
)

// Contract is one salary agreement of an employee. Breakdown and
// EquivalentMonthlyCTC are derived and rewritten on every save.
type Contract struct {
	ID                   string              `json:"id"`
	EmployeeID           string              `json:"employeeId"`
	ContractType         string              `json:"contractType"`
	EffectiveFrom        time.Time           `json:"effectiveFrom"`
	EndDate              *time.Time          `json:"endDate,omitempty"`
	TotalAnnualCTC       decimal.Decimal     `json:"totalAnnualCtc"`
	Breakdown            ctc.Breakdown       `json:"breakdown"`
	ManualOverrides      ctc.Overrides       `json:"manualOverrides"`
	ContractAmount       decimal.NullDecimal `json:"contractAmount"`
	ContractPeriodMonths *int                `json:"contractPeriodMonths"`
	EquivalentMonthlyCTC decimal.Decimal     `json:"equivalentMonthlyCtc"`
	IsActive             bool                `json:"isActive"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`

	// Fallbacks is reported on the save that computed the breakdown; it is
	// not stored.
	Fallbacks []ctc.Issue `json:"fallbacks,omitempty"`
}

// ContractInput carries the caller-owned fields of a contract.
type ContractInput struct {
	ContractType         string
	EffectiveFrom        time.Time
	EndDate              *time.Time
	TotalAnnualCTC       decimal.Decimal
	ManualOverrides      ctc.Overrides
	ContractAmount       decimal.NullDecimal
	ContractPeriodMonths *int
	IsActive             *bool
}

type EmployeeSummary struct {
	ID           string
	EmployeeCode string
	FullName     string
	Designation  string
	Department   string
}
