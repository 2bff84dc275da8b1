package employees

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hradmin/internal/domain/ctc"
	"hradmin/internal/domain/validation"
)

type fakeStore struct {
	employees map[string]Employee
	nextID    int
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{employees: map[string]Employee{}}
}

func (s *fakeStore) ListEmployees(_ context.Context, filter ListFilter) ([]Employee, int, error) {
	var out []Employee
	for _, e := range s.employees {
		if filter.Department != "" && e.Department != filter.Department {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (s *fakeStore) GetEmployee(_ context.Context, id string) (Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return e, nil
}

func (s *fakeStore) CodeTaken(_ context.Context, code, excludeID string) (bool, error) {
	for id, e := range s.employees {
		if id != excludeID && e.EmployeeCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateEmployee(_ context.Context, e Employee) (Employee, error) {
	s.nextID++
	e.ID = fmt.Sprintf("emp-%d", s.nextID)
	s.employees[e.ID] = e
	return e, nil
}

func (s *fakeStore) UpdateEmployee(_ context.Context, e Employee) (Employee, error) {
	if _, ok := s.employees[e.ID]; !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	s.employees[e.ID] = e
	return e, nil
}

func (s *fakeStore) UpsertByCode(ctx context.Context, e Employee) (Employee, bool, error) {
	if s.upsertErr != nil {
		return Employee{}, false, s.upsertErr
	}
	for id, existing := range s.employees {
		if existing.EmployeeCode == e.EmployeeCode {
			e.ID = id
			s.employees[id] = e
			return e, false, nil
		}
	}
	created, err := s.CreateEmployee(ctx, e)
	return created, true, err
}

type countingMetrics struct{ payrolls int }

func (m *countingMetrics) BreakdownComputed(int) {}
func (m *countingMetrics) PayrollRecomputed()    { m.payrolls++ }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, field, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "%s: expected %s, got %s", field, want, got.StringFixed(2))
}

func sampleInput() Input {
	return Input{
		Profile: Profile{EmployeeCode: " E001 ", FullName: " Asha Rao ", Department: "Engineering"},
		Salary: ctc.PayrollInputs{
			Basic:           dec("20000"),
			HRA:             dec("8000"),
			TravelAllowance: dec("1600"),
			EmployerPF:      dec("2400"),
			AnnualBonus:     dec("12000"),
		},
	}
}

func TestCreateDerivesPayroll(t *testing.T) {
	metrics := &countingMetrics{}
	svc := NewService(newFakeStore(), metrics)

	created, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "E001", created.EmployeeCode)
	assert.Equal(t, "Asha Rao", created.FullName)
	assert.Equal(t, ExitStatusActive, created.ExitStatus)
	assertDecimal(t, "gross", "29600", created.Derived.GrossMonthly)
	assertDecimal(t, "monthly ctc", "33000", created.Derived.MonthlyCTC)
	assertDecimal(t, "gratuity", "11538.46", created.Derived.Gratuity)
	assertDecimal(t, "annual ctc", "419538.46", created.Derived.AnnualCTC)
	assert.Equal(t, 1, metrics.payrolls)
}

func TestCreateRoundsInputsBeforeDeriving(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	in := sampleInput()
	in.Salary = ctc.PayrollInputs{Basic: dec("100.005"), HRA: dec("0.015")}

	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assertDecimal(t, "basic", "100", created.Salary.Basic)
	assertDecimal(t, "hra", "0.02", created.Salary.HRA)
	assertDecimal(t, "gross", "100.02", created.Derived.GrossMonthly)
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	in := sampleInput()
	in.FullName = "  "
	in.Salary.ContractPeriodMonths = -3
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFullNameRequired))
	assert.True(t, errors.Is(err, ErrNegativePeriod))

	_, err = svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), sampleInput())
	assert.True(t, errors.Is(err, ErrDuplicateEmployeeCode))
	issues, ok := validation.Fields(err)
	require.True(t, ok)
	assert.Equal(t, "employeeCode", issues[0].Field)
}

func TestEmployeesWithoutCodeDoNotCollide(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	for i := 0; i < 2; i++ {
		in := sampleInput()
		in.EmployeeCode = ""
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
	}
}

func TestUpdateRecomputesAndIgnoresCallerDerived(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	created, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)

	in := sampleInput()
	in.Salary.Basic = dec("26000")
	in.Salary.ContractAmount = dec("600000")
	in.Salary.ContractPeriodMonths = 12
	updated, err := svc.Update(context.Background(), created.ID, in)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assertDecimal(t, "gratuity", "15000", updated.Derived.Gratuity)
	assertDecimal(t, "annual ctc", "600000", updated.Derived.AnnualCTC)
	assertDecimal(t, "equivalent monthly", "50000", updated.Derived.EquivalentMonthlyCTC)

	_, err = svc.Update(context.Background(), "missing", in)
	assert.True(t, errors.Is(err, ErrEmployeeNotFound))
}

func TestUpdateKeepsOwnCode(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	first, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	other := sampleInput()
	other.EmployeeCode = "E002"
	_, err = svc.Create(context.Background(), other)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), first.ID, sampleInput())
	assert.NoError(t, err)

	_, err = svc.Update(context.Background(), first.ID, other)
	assert.True(t, errors.Is(err, ErrDuplicateEmployeeCode))
}

func TestDatesAreNormalized(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	joined := time.Date(2024, 6, 3, 18, 30, 0, 0, time.FixedZone("IST", 19800))
	in := sampleInput()
	in.JoiningDate = &joined
	in.RevisionDueDate = &time.Time{}

	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, created.JoiningDate)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), *created.JoiningDate)
	assert.Nil(t, created.RevisionDueDate)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	derived := svc.Preview(sampleInput().Salary)
	assertDecimal(t, "monthly bonus", "1000", derived.MonthlyBonus)
	assertDecimal(t, "annual ctc", "419538.46", derived.AnnualCTC)
	assert.Empty(t, store.employees)
}

func TestRegisterIgnoresPaging(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	for _, code := range []string{"E1", "E2", "E3"} {
		in := sampleInput()
		in.EmployeeCode = code
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
	}

	all, err := svc.Register(context.Background(), ListFilter{Limit: 1, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
