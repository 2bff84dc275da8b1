package employees

import "context"

type StoreAPI interface {
	ListEmployees(ctx context.Context, filter ListFilter) ([]Employee, int, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	CodeTaken(ctx context.Context, code, excludeID string) (bool, error)
	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, e Employee) (Employee, error)
	// UpsertByCode inserts or replaces the employee carrying e.EmployeeCode
	// and reports whether a new row was created.
	UpsertByCode(ctx context.Context, e Employee) (Employee, bool, error)
}
