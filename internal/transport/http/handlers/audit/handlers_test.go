package audithandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/auth"
	"hradmin/internal/transport/http/middleware"
)

const secret = "audit-handler-secret"

type fakeLister struct {
	filter        audit.Filter
	limit, offset int
	err           error
}

func (f *fakeLister) List(_ context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, int, error) {
	f.filter, f.limit, f.offset = filter, limit, offset
	if f.err != nil {
		return nil, 0, f.err
	}
	return []audit.Event{{ID: "e-1", Action: audit.ActionContractCreate, EntityType: audit.EntityContract}}, 7, nil
}

func get(t *testing.T, lister EventLister, role, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Use(middleware.Auth(secret))
	NewHandler(lister, nil).RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if role != "" {
		signed, err := auth.GenerateToken(secret, auth.Claims{UserID: "u-1", RoleName: role}, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListEvents(t *testing.T) {
	lister := &fakeLister{}
	rec := get(t, lister, auth.RoleAdmin, "/audit/events?entityType=contract&entityId=c-9&action=contract.update&limit=20&offset=40")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Header().Get("X-Total-Count"))
	assert.Contains(t, rec.Body.String(), `"action":"contract.create"`)
	assert.Equal(t, audit.Filter{Action: "contract.update", EntityType: "contract", EntityID: "c-9"}, lister.filter)
	assert.Equal(t, 20, lister.limit)
	assert.Equal(t, 40, lister.offset)
}

func TestListEventsRequiresWriteRole(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, get(t, &fakeLister{}, "", "/audit/events").Code)
	assert.Equal(t, http.StatusForbidden, get(t, &fakeLister{}, auth.RoleEmployee, "/audit/events").Code)
}

func TestListEventsFailure(t *testing.T) {
	rec := get(t, &fakeLister{err: errors.New("db down")}, auth.RoleHR, "/audit/events")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
