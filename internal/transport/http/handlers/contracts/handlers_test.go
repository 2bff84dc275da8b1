package contractshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/contracts"
	"hradmin/internal/domain/ctc"
	"hradmin/internal/domain/validation"
	"hradmin/internal/transport/http/middleware"
)

const (
	employeeID = "0f8c3c52-8d0e-4d8e-9d55-2f5b0a3c1e01"
	contractID = "7a1d9f3e-5b62-4c1f-8e07-9c4d2b6a8f10"
)

type fakeService struct {
	contracts    map[string]contracts.Contract
	lastInput    contracts.ContractInput
	createErr    error
	recalculated string
	deleted      string
}

func newFakeService() *fakeService {
	return &fakeService{contracts: map[string]contracts.Contract{
		contractID: {
			ID:             contractID,
			EmployeeID:     employeeID,
			ContractType:   contracts.TypeFullTime,
			EffectiveFrom:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			TotalAnnualCTC: decimal.NewFromInt(1200000),
			Breakdown:      ctc.Breakdown{{Code: "BASIC", Amount: decimal.NewFromInt(40000)}},
			IsActive:       true,
		},
	}}
}

func (f *fakeService) List(_ context.Context, id string) ([]contracts.Contract, error) {
	if id != employeeID {
		return nil, contracts.ErrEmployeeNotFound
	}
	var out []contracts.Contract
	for _, c := range f.contracts {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeService) Get(_ context.Context, id string) (contracts.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return contracts.Contract{}, contracts.ErrContractNotFound
	}
	return c, nil
}

func (f *fakeService) Create(_ context.Context, id string, in contracts.ContractInput) (contracts.Contract, error) {
	f.lastInput = in
	if f.createErr != nil {
		return contracts.Contract{}, f.createErr
	}
	return contracts.Contract{ID: contractID, EmployeeID: id, EffectiveFrom: in.EffectiveFrom, TotalAnnualCTC: in.TotalAnnualCTC}, nil
}

func (f *fakeService) Update(ctx context.Context, id string, in contracts.ContractInput) (contracts.Contract, error) {
	f.lastInput = in
	return f.Get(ctx, id)
}

func (f *fakeService) Recalculate(ctx context.Context, id string) (contracts.Contract, error) {
	f.recalculated = id
	return f.Get(ctx, id)
}

func (f *fakeService) Delete(_ context.Context, id string) error {
	if _, ok := f.contracts[id]; !ok {
		return contracts.ErrContractNotFound
	}
	f.deleted = id
	return nil
}

func (f *fakeService) Statement(ctx context.Context, id, companyName string) (contracts.Statement, error) {
	c, err := f.Get(ctx, id)
	if err != nil {
		return contracts.Statement{}, err
	}
	return contracts.Statement{
		CompanyName: companyName,
		Employee:    contracts.EmployeeSummary{ID: employeeID, EmployeeCode: "E/001", FullName: "Asha Rao"},
		Contract:    c,
		Lines: []contracts.StatementLine{{
			Code: "BASIC", Name: "Basic", Category: ctc.CategoryEarning,
			Monthly: decimal.NewFromInt(40000), Annual: decimal.NewFromInt(480000),
		}},
		GeneratedAt: time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC),
	}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details struct {
			Fields []struct {
				Field  string `json:"field"`
				Reason string `json:"reason"`
			} `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func do(svc ContractService, method, target, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	NewHandler(svc, "Acme Pvt Ltd", nil, nil).RegisterRoutes(router)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestCreateContractParsesPayload(t *testing.T) {
	svc := newFakeService()
	body := `{
		"effectiveFrom": "2024-04-01",
		"endDate": "2025-03-31",
		"totalAnnualCtc": "1,200,000",
		"manualOverrides": {"hra": "5000"},
		"contractAmount": 600000,
		"contractPeriodMonths": 12
	}`
	rec := do(svc, http.MethodPost, "/employees/"+employeeID+"/contracts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	in := svc.lastInput
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), in.EffectiveFrom)
	require.NotNil(t, in.EndDate)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), *in.EndDate)
	assert.True(t, in.TotalAnnualCTC.IsZero(), "thousands separators are not a number")
	assert.True(t, in.ManualOverrides["hra"].Equal(decimal.NewFromInt(5000)))
	require.True(t, in.ContractAmount.Valid)
	assert.True(t, in.ContractAmount.Decimal.Equal(decimal.NewFromInt(600000)))
	require.NotNil(t, in.ContractPeriodMonths)
	assert.Equal(t, 12, *in.ContractPeriodMonths)
	assert.Nil(t, in.IsActive)
}

func TestCreateContractWithoutOptionalFields(t *testing.T) {
	svc := newFakeService()
	rec := do(svc, http.MethodPost, "/employees/"+employeeID+"/contracts", `{"effectiveFrom":"2024-04-01","totalAnnualCtc":900000,"contractAmount":null}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, svc.lastInput.ContractAmount.Valid)
	assert.Nil(t, svc.lastInput.ContractPeriodMonths)
	assert.Nil(t, svc.lastInput.EndDate)
	assert.Nil(t, svc.lastInput.ManualOverrides)
}

func TestCreateContractRejectsBadDate(t *testing.T) {
	rec := do(newFakeService(), http.MethodPost, "/employees/"+employeeID+"/contracts", `{"effectiveFrom":"01/04/2024"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.Equal(t, "validation_error", env.Error.Code)
	require.Len(t, env.Error.Details.Fields, 1)
	assert.Equal(t, "effectiveFrom", env.Error.Details.Fields[0].Field)
}

func TestCreateContractDuplicateDateIsValidationError(t *testing.T) {
	svc := newFakeService()
	svc.createErr = validation.Field("effectiveFrom", contracts.ErrDuplicateEffectiveDate)
	rec := do(svc, http.MethodPost, "/employees/"+employeeID+"/contracts", `{"effectiveFrom":"2024-04-01","totalAnnualCtc":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.Len(t, env.Error.Details.Fields, 1)
	assert.Equal(t, "effectiveFrom", env.Error.Details.Fields[0].Field)
	assert.Equal(t, contracts.ErrDuplicateEffectiveDate.Error(), env.Error.Details.Fields[0].Reason)
}

func TestListContracts(t *testing.T) {
	rec := do(newFakeService(), http.MethodGet, "/employees/"+employeeID+"/contracts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"BASIC":40000.00`)

	rec = do(newFakeService(), http.MethodGet, "/employees/6e0c1d7a-0000-4000-8000-000000000000/contracts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(newFakeService(), http.MethodGet, "/employees/abc/contracts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUpdateRecalculateDelete(t *testing.T) {
	svc := newFakeService()

	rec := do(svc, http.MethodGet, "/contracts/"+contractID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(svc, http.MethodPut, "/contracts/"+contractID, `{"contractType":"Part-time","effectiveFrom":"2024-05-01","isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Part-time", svc.lastInput.ContractType)
	require.NotNil(t, svc.lastInput.IsActive)
	assert.False(t, *svc.lastInput.IsActive)

	rec = do(svc, http.MethodPost, "/contracts/"+contractID+"/recalculate", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contractID, svc.recalculated)

	rec = do(svc, http.MethodDelete, "/contracts/"+contractID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contractID, svc.deleted)

	rec = do(svc, http.MethodDelete, "/contracts/6e0c1d7a-0000-4000-8000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatementPDF(t *testing.T) {
	rec := do(newFakeService(), http.MethodGet, "/contracts/"+contractID+"/statement.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=ctc-statement-E_001-2024-04-01.pdf", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

type fakeRecorder struct {
	entries []audit.Entry
}

func (f *fakeRecorder) Record(_ context.Context, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func TestContractChangesAreAudited(t *testing.T) {
	const secret = "contracts-audit-secret"
	signed, err := auth.GenerateToken(secret, auth.Claims{UserID: "hr-7", RoleName: auth.RoleHR}, time.Hour)
	require.NoError(t, err)

	svc := newFakeService()
	recorder := &fakeRecorder{}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Auth(secret))
	NewHandler(svc, "Acme Pvt Ltd", recorder, nil).RegisterRoutes(router)

	send := func(method, target, body string) int {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+signed)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusCreated, send(http.MethodPost, "/employees/"+employeeID+"/contracts", `{"effectiveFrom":"2025-04-01","totalAnnualCtc":900000}`))
	require.Equal(t, http.StatusOK, send(http.MethodPut, "/contracts/"+contractID, `{"effectiveFrom":"2024-04-01","totalAnnualCtc":1300000}`))
	require.Equal(t, http.StatusOK, send(http.MethodPost, "/contracts/"+contractID+"/recalculate", ""))
	require.Equal(t, http.StatusOK, send(http.MethodGet, "/contracts/"+contractID, ""))
	require.Equal(t, http.StatusOK, send(http.MethodDelete, "/contracts/"+contractID, ""))
	require.Equal(t, http.StatusNotFound, send(http.MethodDelete, "/contracts/"+employeeID, ""))

	actions := make([]string, 0, len(recorder.entries))
	for _, entry := range recorder.entries {
		actions = append(actions, entry.Action)
		assert.Equal(t, audit.EntityContract, entry.EntityType)
		assert.Equal(t, "hr-7", entry.ActorID)
		assert.Equal(t, "203.0.113.9", entry.IP)
		assert.NotEmpty(t, entry.RequestID)
	}
	assert.Equal(t, []string{
		audit.ActionContractCreate,
		audit.ActionContractUpdate,
		audit.ActionContractRecalculate,
		audit.ActionContractDelete,
	}, actions)

	deleted := recorder.entries[3]
	assert.Equal(t, contractID, deleted.EntityID)
	assert.Equal(t, contractID, deleted.Before.(contracts.Contract).ID)
	assert.Nil(t, deleted.After)
}
