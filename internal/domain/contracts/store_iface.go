package contracts

import (
	"context"
	"time"

	"hradmin/internal/domain/ctc"
)

type StoreAPI interface {
	EmployeeSummary(ctx context.Context, employeeID string) (EmployeeSummary, error)
	ListContracts(ctx context.Context, employeeID string) ([]Contract, error)
	GetContract(ctx context.Context, id string) (Contract, error)
	EffectiveDateTaken(ctx context.Context, employeeID string, effectiveFrom time.Time, excludeID string) (bool, error)
	CreateContract(ctx context.Context, contract Contract) (Contract, error)
	UpdateContract(ctx context.Context, contract Contract) (Contract, error)
	DeleteContract(ctx context.Context, id string) error
}

// ComponentSource is the rule table as the ctc service exposes it.
type ComponentSource interface {
	RuleTable(ctx context.Context) (ctc.RuleTable, error)
	List(ctx context.Context, includeInactive bool) ([]ctc.Component, error)
}
