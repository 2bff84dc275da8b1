package ctc

import (
	"github.com/shopspring/decimal"
)

// PayrollInputs are the HR-entered salary figures of the fixed-schema path.
// Monthly amounts unless the name says Annual.
type PayrollInputs struct {
	Basic                       decimal.Decimal
	HRA                         decimal.Decimal
	TravelAllowance             decimal.Decimal
	ChildrensEducationAllowance decimal.Decimal
	SupplementaryAllowance      decimal.Decimal
	EmployerPF                  decimal.Decimal
	EmployerESI                 decimal.Decimal
	AnnualBonus                 decimal.Decimal
	AnnualPerformanceIncentive  decimal.Decimal
	MedicalPremium              decimal.Decimal

	MedicalReimbursementAnnual   decimal.Decimal
	VehicleReimbursementAnnual   decimal.Decimal
	DriverReimbursementAnnual    decimal.Decimal
	TelephoneReimbursementAnnual decimal.Decimal
	MealsReimbursementAnnual     decimal.Decimal
	UniformReimbursementAnnual   decimal.Decimal
	LeaveTravelAllowanceAnnual   decimal.Decimal

	ContractAmount       decimal.Decimal
	ContractPeriodMonths int
}

// PayrollDerived are the calculator-owned fields. MonthlyBonus is reported
// but not stored.
type PayrollDerived struct {
	GrossMonthly         decimal.Decimal `json:"grossMonthly"`
	MonthlyBonus         decimal.Decimal `json:"monthlyBonus"`
	MonthlyCTC           decimal.Decimal `json:"monthlyCtc"`
	Gratuity             decimal.Decimal `json:"gratuity"`
	AnnualCTC            decimal.Decimal `json:"annualCtc"`
	EquivalentMonthlyCTC decimal.Decimal `json:"equivalentMonthlyCtc"`
}

var (
	months        = decimal.NewFromInt(12)
	gratuityDays  = decimal.NewFromInt(15)
	gratuityMonth = decimal.NewFromInt(26)
)

func (in PayrollInputs) reimbursements() decimal.Decimal {
	return decimal.Sum(
		in.MedicalReimbursementAnnual,
		in.VehicleReimbursementAnnual,
		in.DriverReimbursementAnnual,
		in.TelephoneReimbursementAnnual,
		in.MealsReimbursementAnnual,
		in.UniformReimbursementAnnual,
		in.LeaveTravelAllowanceAnnual,
	)
}

// Recompute derives gross, monthly and annual CTC and gratuity from the
// inputs. Arithmetic is unrounded; each result is rounded to two places at
// the end. A fixed-term contract (amount and period both non-zero) replaces
// the itemized annual CTC with the contract amount.
func Recompute(in PayrollInputs) PayrollDerived {
	gross := decimal.Sum(in.Basic, in.HRA, in.TravelAllowance, in.ChildrensEducationAllowance, in.SupplementaryAllowance)

	monthlyBonus := decimal.Zero
	if !in.AnnualBonus.IsZero() {
		monthlyBonus = in.AnnualBonus.Div(months)
	}

	monthlyCTC := decimal.Sum(gross, in.EmployerPF, in.EmployerESI, monthlyBonus)
	gratuity := in.Basic.Mul(gratuityDays).Div(gratuityMonth)

	annualCTC := decimal.Sum(
		monthlyCTC.Mul(months),
		gratuity,
		in.MedicalPremium,
		in.reimbursements(),
		in.AnnualBonus,
		in.AnnualPerformanceIncentive,
	)

	equivalentMonthly, fixedTerm := FixedTermMonthly(in.ContractAmount, in.ContractPeriodMonths)
	if fixedTerm {
		annualCTC = in.ContractAmount
	}

	return PayrollDerived{
		GrossMonthly:         RoundAmount(gross),
		MonthlyBonus:         RoundAmount(monthlyBonus),
		MonthlyCTC:           RoundAmount(monthlyCTC),
		Gratuity:             RoundAmount(gratuity),
		AnnualCTC:            RoundAmount(annualCTC),
		EquivalentMonthlyCTC: RoundAmount(equivalentMonthly),
	}
}

// FixedTermMonthly spreads a fixed-term contract amount over its period. It
// reports false, with a zero value, unless both amount and period are set.
// The result is unrounded.
func FixedTermMonthly(amount decimal.Decimal, periodMonths int) (decimal.Decimal, bool) {
	if amount.IsZero() || periodMonths == 0 {
		return decimal.Zero, false
	}
	return amount.Div(decimal.NewFromInt(int64(periodMonths))), true
}
