package employeeshandler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hradmin/internal/domain/ctc"
	"hradmin/internal/domain/employees"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
	"hradmin/internal/transport/http/shared"
)

const maxImportMemory = 8 << 20

type EmployeeService interface {
	List(ctx context.Context, filter employees.ListFilter) ([]employees.Employee, int, error)
	Get(ctx context.Context, id string) (employees.Employee, error)
	Create(ctx context.Context, in employees.Input) (employees.Employee, error)
	Update(ctx context.Context, id string, in employees.Input) (employees.Employee, error)
	Preview(in ctc.PayrollInputs) ctc.PayrollDerived
	Import(ctx context.Context, rows []employees.Row) (employees.ImportResult, error)
	Register(ctx context.Context, filter employees.ListFilter) ([]employees.Employee, error)
}

type Handler struct {
	Service EmployeeService
	Logger  *zap.Logger
}

func NewHandler(service EmployeeService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: service, Logger: logger}
}

// employeePayload is the write body. Derived values a client echoes back are
// not part of it and so never reach the service.
type employeePayload struct {
	EmployeeCode      string            `json:"employeeCode" validate:"max=50"`
	FullName          string            `json:"fullName" validate:"required,max=200"`
	OfficialEmail     string            `json:"officialEmail" validate:"omitempty,email"`
	PersonalEmail     string            `json:"personalEmail" validate:"omitempty,email"`
	Mobile            string            `json:"mobile" validate:"max=30"`
	Gender            string            `json:"gender"`
	Department        string            `json:"department"`
	Designation       string            `json:"designation"`
	Location          string            `json:"location"`
	EmployeeCategory  string            `json:"employeeCategory"`
	JoiningDate       string            `json:"joiningDate"`
	ExitStatus        string            `json:"exitStatus"`
	SalApplicableFrom string            `json:"salApplicableFrom"`
	RevisionDueDate   string            `json:"revisionDueDate"`
	Salary            ctc.PayrollInputs `json:"salary"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/employees", h.handleList)
	r.Post("/employees", h.handleCreate)
	r.Post("/employees/preview", h.handlePreview)
	r.Post("/employees/import", h.handleImport)
	r.Get("/employees/export.xlsx", h.handleExport)
	r.Get("/employees/{employeeID}", h.handleGet)
	r.Put("/employees/{employeeID}", h.handleUpdate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, employees.DefaultListLimit, employees.MaxListLimit)
	filter := listFilter(r)
	filter.Limit, filter.Offset = page.Limit, page.Offset

	list, total, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []employees.Employee{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}
	employee, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, employee, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeEmployee(w, r)
	if !ok {
		return
	}
	employee, err := h.Service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, employee, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}
	in, ok := decodeEmployee(w, r)
	if !ok {
		return
	}
	employee, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, employee, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Salary ctc.PayrollInputs `json:"salary"`
	}
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.FailDecode(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, h.Service.Preview(payload.Salary), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if err := r.ParseMultipartForm(maxImportMemory); err != nil {
		shared.FailDecode(w, requestID, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_import", "multipart field \"file\" is required", requestID)
		return
	}
	defer file.Close()

	rows, err := employees.ReadRows(file, header.Filename)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.FailDecode(w, requestID, err)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_import", err.Error(), requestID)
		return
	}
	result, err := h.Service.Import(r.Context(), rows)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Logger.Info("employee import finished",
		zap.String("file", header.Filename),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("rejected", len(result.Errors)),
		zap.String("requestId", requestID),
	)
	api.Success(w, result, requestID)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Register(r.Context(), listFilter(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := employees.WriteRegister(&buf, list); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=salary-register-"+time.Now().UTC().Format("2006-01-02")+".xlsx")
	_, _ = w.Write(buf.Bytes())
}

func listFilter(r *http.Request) employees.ListFilter {
	q := r.URL.Query()
	return employees.ListFilter{
		Department:  strings.TrimSpace(q.Get("department")),
		Designation: strings.TrimSpace(q.Get("designation")),
		Category:    strings.TrimSpace(q.Get("category")),
		ExitStatus:  strings.TrimSpace(q.Get("exitStatus")),
		Query:       strings.TrimSpace(q.Get("q")),
	}
}

func decodeEmployee(w http.ResponseWriter, r *http.Request) (employees.Input, bool) {
	requestID := middleware.GetRequestID(r.Context())
	var payload employeePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.FailDecode(w, requestID, err)
		return employees.Input{}, false
	}

	validator := shared.NewValidator()
	validator.Struct(payload)
	in := employees.Input{
		Profile: employees.Profile{
			EmployeeCode:     payload.EmployeeCode,
			FullName:         payload.FullName,
			OfficialEmail:    payload.OfficialEmail,
			PersonalEmail:    payload.PersonalEmail,
			Mobile:           payload.Mobile,
			Gender:           payload.Gender,
			Department:       payload.Department,
			Designation:      payload.Designation,
			Location:         payload.Location,
			EmployeeCategory: payload.EmployeeCategory,
			ExitStatus:       payload.ExitStatus,
		},
		Salary: payload.Salary,
	}
	in.JoiningDate = optionalDate(validator, "joiningDate", payload.JoiningDate)
	in.SalApplicableFrom = optionalDate(validator, "salApplicableFrom", payload.SalApplicableFrom)
	in.RevisionDueDate = optionalDate(validator, "revisionDueDate", payload.RevisionDueDate)
	if validator.Reject(w, requestID) {
		return employees.Input{}, false
	}
	return in, true
}

func optionalDate(v *shared.Validator, field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parsed, ok := v.Date(field, raw)
	if !ok {
		return nil
	}
	return &parsed
}

func employeeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "employeeID")
	if _, err := uuid.Parse(id); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", employees.ErrEmployeeNotFound.Error(), middleware.GetRequestID(r.Context()))
		return "", false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, employees.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, employees.ErrDuplicateEmployeeCode):
		api.Fail(w, http.StatusConflict, "employee_code_exists", employees.ErrDuplicateEmployeeCode.Error(), requestID)
	default:
		validator := shared.NewValidator()
		if validator.Domain(err) {
			validator.Reject(w, requestID)
			return
		}
		h.Logger.Error("employee request failed", zap.Error(err), zap.String("path", r.URL.Path), zap.String("requestId", requestID))
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
