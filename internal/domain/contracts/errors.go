package contracts

import "errors"

var (
	ErrContractNotFound       = errors.New("contract not found")
	ErrEmployeeNotFound       = errors.New("employee not found")
	ErrDuplicateEffectiveDate = errors.New("a contract with this effective date already exists for the employee")
	ErrEffectiveFromRequired  = errors.New("effective date is required")
	ErrEndBeforeStart         = errors.New("end date must not be before the effective date")
	ErrInvalidContractType    = errors.New("unknown contract type")
	ErrNegativeAmount         = errors.New("amount must not be negative")
	ErrNegativePeriod         = errors.New("contract period must not be negative")
)
