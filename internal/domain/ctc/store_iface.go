package ctc

import "context"

type StoreAPI interface {
	ListComponents(ctx context.Context, includeInactive bool) ([]Component, error)
	GetComponent(ctx context.Context, id string) (Component, error)
	CodeTaken(ctx context.Context, code, excludeID string) (bool, error)
	CreateComponent(ctx context.Context, component Component) (Component, error)
	UpdateComponent(ctx context.Context, component Component) (Component, error)
	DeactivateComponent(ctx context.Context, id string) error
}

// EngineMetrics receives engine counters from the services that run
// calculations. Services accept a nil EngineMetrics.
type EngineMetrics interface {
	BreakdownComputed(fallbacks int)
	PayrollRecomputed()
}
