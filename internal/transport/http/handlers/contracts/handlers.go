package contractshandler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/contracts"
	"hradmin/internal/domain/ctc"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
	"hradmin/internal/transport/http/shared"
)

type ContractService interface {
	List(ctx context.Context, employeeID string) ([]contracts.Contract, error)
	Get(ctx context.Context, id string) (contracts.Contract, error)
	Create(ctx context.Context, employeeID string, in contracts.ContractInput) (contracts.Contract, error)
	Update(ctx context.Context, id string, in contracts.ContractInput) (contracts.Contract, error)
	Recalculate(ctx context.Context, id string) (contracts.Contract, error)
	Delete(ctx context.Context, id string) error
	Statement(ctx context.Context, id, companyName string) (contracts.Statement, error)
}

type Handler struct {
	Service     ContractService
	CompanyName string
	Audit       audit.Recorder
	Logger      *zap.Logger
}

func NewHandler(service ContractService, companyName string, recorder audit.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: service, CompanyName: companyName, Audit: recorder, Logger: logger}
}

type contractPayload struct {
	ContractType         string                `json:"contractType"`
	EffectiveFrom        string                `json:"effectiveFrom"`
	EndDate              string                `json:"endDate"`
	TotalAnnualCTC       ctc.Amount            `json:"totalAnnualCtc"`
	ManualOverrides      map[string]ctc.Amount `json:"manualOverrides"`
	ContractAmount       *ctc.Amount           `json:"contractAmount"`
	ContractPeriodMonths *ctc.Months           `json:"contractPeriodMonths"`
	IsActive             *bool                 `json:"isActive"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/employees/{employeeID}/contracts", h.handleList)
	r.Post("/employees/{employeeID}/contracts", h.handleCreate)
	r.Route("/contracts/{contractID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
		r.Post("/recalculate", h.handleRecalculate)
		r.Get("/statement.pdf", h.handleStatement)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := pathID(w, r, "employeeID", contracts.ErrEmployeeNotFound)
	if !ok {
		return
	}
	list, err := h.Service.List(r.Context(), employeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []contracts.Contract{}
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := pathID(w, r, "employeeID", contracts.ErrEmployeeNotFound)
	if !ok {
		return
	}
	in, ok := decodeContract(w, r)
	if !ok {
		return
	}
	contract, err := h.Service.Create(r.Context(), employeeID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, audit.ActionContractCreate, contract.ID, nil, contract)
	api.Created(w, contract, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contractID", contracts.ErrContractNotFound)
	if !ok {
		return
	}
	contract, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, contract, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contractID", contracts.ErrContractNotFound)
	if !ok {
		return
	}
	in, ok := decodeContract(w, r)
	if !ok {
		return
	}
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	contract, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, audit.ActionContractUpdate, id, before, contract)
	api.Success(w, contract, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contractID", contracts.ErrContractNotFound)
	if !ok {
		return
	}
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	contract, err := h.Service.Recalculate(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, audit.ActionContractRecalculate, id, before, contract)
	api.Success(w, contract, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contractID", contracts.ErrContractNotFound)
	if !ok {
		return
	}
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, audit.ActionContractDelete, id, before, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contractID", contracts.ErrContractNotFound)
	if !ok {
		return
	}
	statement, err := h.Service.Statement(r.Context(), id, h.CompanyName)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := contracts.RenderStatementPDF(&buf, statement); err != nil {
		h.fail(w, r, fmt.Errorf("render statement: %w", err))
		return
	}
	name := "ctc-statement"
	if code := statement.Employee.EmployeeCode; code != "" {
		name += "-" + sanitizeFilename(code)
	}
	filename := name + "-" + statement.Contract.EffectiveFrom.Format("2006-01-02") + ".pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(buf.Bytes())
}

// decodeContract parses the body into service input. Dates must be
// YYYY-MM-DD (or RFC3339); a missing effective date is left for the service
// to report.
func decodeContract(w http.ResponseWriter, r *http.Request) (contracts.ContractInput, bool) {
	requestID := middleware.GetRequestID(r.Context())
	var payload contractPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.FailDecode(w, requestID, err)
		return contracts.ContractInput{}, false
	}

	validator := shared.NewValidator()
	in := contracts.ContractInput{
		ContractType:   payload.ContractType,
		TotalAnnualCTC: payload.TotalAnnualCTC.Decimal,
		IsActive:       payload.IsActive,
	}
	if raw := strings.TrimSpace(payload.EffectiveFrom); raw != "" {
		in.EffectiveFrom, _ = validator.Date("effectiveFrom", raw)
	}
	if raw := strings.TrimSpace(payload.EndDate); raw != "" {
		if end, ok := validator.Date("endDate", raw); ok {
			in.EndDate = &end
		}
	}
	if validator.Reject(w, requestID) {
		return contracts.ContractInput{}, false
	}

	if len(payload.ManualOverrides) > 0 {
		in.ManualOverrides = make(ctc.Overrides, len(payload.ManualOverrides))
		for code, amount := range payload.ManualOverrides {
			in.ManualOverrides[code] = amount.Decimal
		}
	}
	if payload.ContractAmount != nil {
		in.ContractAmount = decimal.NewNullDecimal(payload.ContractAmount.Decimal)
	}
	if payload.ContractPeriodMonths != nil {
		months := int(*payload.ContractPeriodMonths)
		in.ContractPeriodMonths = &months
	}
	return in, true
}

func (h *Handler) audit(r *http.Request, action, id string, before, after any) {
	shared.RecordAudit(r, h.Audit, h.Logger, audit.Entry{
		Action:     action,
		EntityType: audit.EntityContract,
		EntityID:   id,
		Before:     before,
		After:      after,
	})
}

func pathID(w http.ResponseWriter, r *http.Request, param string, notFound error) (string, bool) {
	id := chi.URLParam(r, param)
	if _, err := uuid.Parse(id); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", notFound.Error(), middleware.GetRequestID(r.Context()))
		return "", false
	}
	return id, true
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, contracts.ErrContractNotFound), errors.Is(err, contracts.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	default:
		validator := shared.NewValidator()
		if validator.Domain(err) {
			validator.Reject(w, requestID)
			return
		}
		h.Logger.Error("contract request failed", zap.Error(err), zap.String("path", r.URL.Path), zap.String("requestId", requestID))
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
