package employees

import "errors"

var (
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrDuplicateEmployeeCode = errors.New("employee code already exists")
	ErrFullNameRequired      = errors.New("full name is required")
	ErrFullNameTooLong       = errors.New("full name must be at most 200 characters")
	ErrCodeTooLong           = errors.New("employee code must be at most 50 characters")
	ErrCodeRequired          = errors.New("employee_code is required for import")
	ErrNegativePeriod        = errors.New("contract period must not be negative")
	ErrUnsupportedFormat     = errors.New("import file must be .csv or .xlsx")
	ErrEmptyImport           = errors.New("import file has no header row")
)
