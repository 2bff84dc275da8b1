package ctc

const (
	// SeedVariable holds the contract's total annual CTC in every breakdown.
	SeedVariable = "CTC"

	MaxCodeLength        = 20
	MaxNameLength        = 100
	MaxDescriptionLength = 300
	DefaultOrder         = 999

	CategoryEarning       = "Earning"
	CategoryDeduction     = "Deduction"
	CategoryContribution  = "Contribution"
	CategoryReimbursement = "Reimbursement"
	CategoryBonus         = "Bonus"
	CategoryOther         = "Other"

	// Amounts are rounded half-to-even, matching NUMERIC(15,2) storage.
	AmountScale = 2
)

var Categories = []string{
	CategoryEarning,
	CategoryDeduction,
	CategoryContribution,
	CategoryReimbursement,
	CategoryBonus,
	CategoryOther,
}
