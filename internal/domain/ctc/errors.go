package ctc

import "errors"

var (
	ErrComponentNotFound = errors.New("ctc component not found")
	ErrDuplicateCode     = errors.New("ctc component code already exists")
	ErrInvalidCode       = errors.New("component code must start with a letter and use only A-Z, 0-9 and _ (max 20)")
	ErrReservedCode      = errors.New("component code is reserved")
	ErrInvalidCategory   = errors.New("unknown component category")
	ErrNameRequired      = errors.New("component name is required")
	ErrNameTooLong       = errors.New("component name must be at most 100 characters")
	ErrDescriptionLength = errors.New("component description must be at most 300 characters")
	ErrNegativeOrder     = errors.New("component order must not be negative")
)
