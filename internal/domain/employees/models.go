package employees

import (
	"time"

	"hradmin/internal/domain/ctc"
)

type Profile struct {
	EmployeeCode      string     `json:"employeeCode"`
	FullName          string     `json:"fullName"`
	OfficialEmail     string     `json:"officialEmail"`
	PersonalEmail     string     `json:"personalEmail"`
	Mobile            string     `json:"mobile"`
	Gender            string     `json:"gender"`
	Department        string     `json:"department"`
	Designation       string     `json:"designation"`
	Location          string     `json:"location"`
	EmployeeCategory  string     `json:"employeeCategory"`
	JoiningDate       *time.Time `json:"joiningDate,omitempty"`
	ExitStatus        string     `json:"exitStatus"`
	SalApplicableFrom *time.Time `json:"salApplicableFrom,omitempty"`
	RevisionDueDate   *time.Time `json:"revisionDueDate,omitempty"`
}

// Employee is the master record. Derived is owned by the payroll calculator
// and rewritten on every save.
type Employee struct {
	ID string `json:"id"`
	Profile
	Salary    ctc.PayrollInputs  `json:"salary"`
	Derived   ctc.PayrollDerived `json:"derived"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type Input struct {
	Profile
	Salary ctc.PayrollInputs
}

type ListFilter struct {
	Department  string
	Designation string
	Category    string
	ExitStatus  string
	Query       string
	Limit       int
	Offset      int
}
