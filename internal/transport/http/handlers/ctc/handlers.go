package ctchandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/ctc"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
	"hradmin/internal/transport/http/shared"
)

// ComponentService is the rule-table surface the handlers need.
type ComponentService interface {
	List(ctx context.Context, includeInactive bool) ([]ctc.Component, error)
	Get(ctx context.Context, id string) (ctc.Component, error)
	Create(ctx context.Context, in ctc.ComponentInput) (ctc.Component, error)
	Update(ctx context.Context, id string, patch ctc.ComponentPatch) (ctc.Component, error)
	Delete(ctx context.Context, id string) error
	Preview(ctx context.Context, totalAnnualCTC decimal.Decimal, overrides ctc.Overrides) (ctc.Calculation, error)
	Lint(ctx context.Context) ([]ctc.Issue, error)
}

type Handler struct {
	Service ComponentService
	Audit   audit.Recorder
	Logger  *zap.Logger
}

// NewHandler accepts a nil recorder, which disables the audit trail.
func NewHandler(service ComponentService, recorder audit.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: service, Audit: recorder, Logger: logger}
}

// componentResponse adds the non-blocking formula check to a saved component.
type componentResponse struct {
	ctc.Component
	FormulaWarning string `json:"formulaWarning,omitempty"`
}

type previewPayload struct {
	TotalAnnualCTC  ctc.Amount            `json:"totalAnnualCtc"`
	ManualOverrides map[string]ctc.Amount `json:"manualOverrides"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ctc-components", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/lint", h.handleLint)
		r.Post("/preview", h.handlePreview)
		r.Get("/{componentID}", h.handleGet)
		r.Patch("/{componentID}", h.handleUpdate)
		r.Delete("/{componentID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	components, err := h.Service.List(r.Context(), includeInactive)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if components == nil {
		components = []ctc.Component{}
	}
	api.Success(w, components, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := componentID(w, r)
	if !ok {
		return
	}
	component, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, component, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload ctc.ComponentInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.FailDecode(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	component, err := h.Service.Create(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, audit.ActionComponentCreate, component.ID, nil, component)
	api.Created(w, componentResponse{Component: component, FormulaWarning: ctc.FormulaWarning(component)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := componentID(w, r)
	if !ok {
		return
	}
	var payload ctc.ComponentPatch
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.FailDecode(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	component, err := h.Service.Update(r.Context(), id, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, audit.ActionComponentUpdate, id, before, component)
	api.Success(w, componentResponse{Component: component, FormulaWarning: ctc.FormulaWarning(component)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := componentID(w, r)
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
	after := before
	after.IsActive = false
	h.audit(r, audit.ActionComponentDeactivate, id, before, after)
	api.Success(w, map[string]string{"status": "deactivated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var payload previewPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.FailDecode(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	overrides := make(ctc.Overrides, len(payload.ManualOverrides))
	for code, amount := range payload.ManualOverrides {
		overrides[code] = amount.Decimal
	}

	calc, err := h.Service.Preview(r.Context(), payload.TotalAnnualCTC.Decimal, overrides)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, calc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLint(w http.ResponseWriter, r *http.Request) {
	issues, err := h.Service.Lint(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if issues == nil {
		issues = []ctc.Issue{}
	}
	api.Success(w, issues, middleware.GetRequestID(r.Context()))
}

func (h *Handler) audit(r *http.Request, action, id string, before, after any) {
	shared.RecordAudit(r, h.Audit, h.Logger, audit.Entry{
		Action:     action,
		EntityType: audit.EntityComponent,
		EntityID:   id,
		Before:     before,
		After:      after,
	})
}

// componentID rejects ids that cannot name a row with a 404, the same answer
// a well-formed unknown id gets.
func componentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "componentID")
	if _, err := uuid.Parse(id); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", ctc.ErrComponentNotFound.Error(), middleware.GetRequestID(r.Context()))
		return "", false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, ctc.ErrComponentNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, ctc.ErrDuplicateCode):
		api.Fail(w, http.StatusConflict, "component_code_exists", ctc.ErrDuplicateCode.Error(), requestID)
	default:
		validator := shared.NewValidator()
		if validator.Domain(err) {
			validator.Reject(w, requestID)
			return
		}
		h.Logger.Error("ctc component request failed", zap.Error(err), zap.String("path", r.URL.Path), zap.String("requestId", requestID))
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
