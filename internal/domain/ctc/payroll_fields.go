package ctc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

const FieldContractPeriodMonths = "contract_period_months"

// PayrollField names one decimal input of the fixed schema. Keys are the
// snake_case names used by imports and exports.
type PayrollField struct {
	Key   string
	Label string
	ref   func(*PayrollInputs) *decimal.Decimal
}

func (f PayrollField) Get(in PayrollInputs) decimal.Decimal {
	return *f.ref(&in)
}

func (f PayrollField) Set(in *PayrollInputs, value decimal.Decimal) {
	*f.ref(in) = value
}

// Ptr addresses the field inside in, for row scanning.
func (f PayrollField) Ptr(in *PayrollInputs) *decimal.Decimal {
	return f.ref(in)
}

var PayrollFields = []PayrollField{
	{"basic", "Basic", func(in *PayrollInputs) *decimal.Decimal { return &in.Basic }},
	{"hra", "HRA", func(in *PayrollInputs) *decimal.Decimal { return &in.HRA }},
	{"travel_allowance", "Travel Allowance", func(in *PayrollInputs) *decimal.Decimal { return &in.TravelAllowance }},
	{"childrens_education_allowance", "Children's Education Allowance", func(in *PayrollInputs) *decimal.Decimal { return &in.ChildrensEducationAllowance }},
	{"supplementary_allowance", "Supplementary Allowance", func(in *PayrollInputs) *decimal.Decimal { return &in.SupplementaryAllowance }},
	{"employer_pf", "Employer PF", func(in *PayrollInputs) *decimal.Decimal { return &in.EmployerPF }},
	{"employer_esi", "Employer ESI", func(in *PayrollInputs) *decimal.Decimal { return &in.EmployerESI }},
	{"annual_bonus", "Annual Bonus", func(in *PayrollInputs) *decimal.Decimal { return &in.AnnualBonus }},
	{"annual_performance_incentive", "Annual Performance Incentive", func(in *PayrollInputs) *decimal.Decimal { return &in.AnnualPerformanceIncentive }},
	{"medical_premium", "Medical Premium", func(in *PayrollInputs) *decimal.Decimal { return &in.MedicalPremium }},
	{"medical_reimbursement_annual", "Medical Reimbursement (Annual)", func(in *PayrollInputs) *decimal.Decimal { return &in.MedicalReimbursementAnnual }},
	{"vehicle_reimbursement_annual", "Vehicle Reimbursement (Annual)", func(in *PayrollInputs) *decimal.Decimal { return &in.VehicleReimbursementAnnual }},
	{"driver_reimbursement_annual", "Driver Reimbursement (Annual)", func(in *PayrollInputs) *decimal.Decimal { return &in.DriverReimbursementAnnual }},
	{"telephone_reimbursement_annual", "Telephone Reimbursement (Annual)", func(in *PayrollInputs) *decimal.Decimal { return &in.TelephoneReimbursementAnnual }},
	{"meals_reimbursement_annual", "Meals Reimbursement (Annual)", func(in *PayrollInputs) *decimal.Decimal { return &in.MealsReimbursementAnnual }},
	{"uniform_reimbursement_annual", "Uniform Reimbursement (Annual)", func(in *PayrollInputs) *decimal.Decimal { return &in.UniformReimbursementAnnual }},
	{"leave_travel_allowance_annual", "Leave Travel Allowance (Annual)", func(in *PayrollInputs) *decimal.Decimal { return &in.LeaveTravelAllowanceAnnual }},
	{"contract_amount", "Contract Amount", func(in *PayrollInputs) *decimal.Decimal { return &in.ContractAmount }},
}

// PayrollInputsFromRecord coerces a flat record (an import row) keyed by
// field name. Missing and unparsable values are zero.
func PayrollInputsFromRecord(record map[string]string) PayrollInputs {
	var in PayrollInputs
	for _, field := range PayrollFields {
		field.Set(&in, ParseAmount(record[field.Key]))
	}
	in.ContractPeriodMonths = ParseMonths(record[FieldContractPeriodMonths])
	return in
}

// Record flattens the inputs into field name -> value, the shape used by
// import rows and the salary register.
func (in PayrollInputs) Record() map[string]string {
	record := make(map[string]string, len(PayrollFields)+1)
	for _, field := range PayrollFields {
		record[field.Key] = field.Get(in).StringFixed(AmountScale)
	}
	record[FieldContractPeriodMonths] = strconv.Itoa(in.ContractPeriodMonths)
	return record
}

// MarshalJSON writes the inputs as an object keyed by field name, in field
// order.
func (in PayrollInputs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, field := range PayrollFields {
		fmt.Fprintf(&buf, "%q:%s,", field.Key, field.Get(in).StringFixed(AmountScale))
	}
	fmt.Fprintf(&buf, "%q:%d}", FieldContractPeriodMonths, in.ContractPeriodMonths)
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts numbers, numeric strings or null for every field.
// Unknown keys are ignored and bad values read as zero.
func (in *PayrollInputs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	record := make(map[string]string, len(raw))
	for key, value := range raw {
		record[key] = string(bytes.Trim(value, `"`))
	}
	*in = PayrollInputsFromRecord(record)
	return nil
}
