package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hradmin/internal/transport/http/api"
)

const (
	idemPath     = "/api/v1/ctc-components"
	idemBody     = `{"code":"BASIC"}`
	idemCacheKey = "idemp:anonymous:" + idemPath + ":k1"
	idemLockKey  = idemCacheKey + ":lock"
	idemTTL      = time.Hour
	idemToken    = "lock-token-1"
)

func fixedLockToken(t *testing.T) {
	t.Helper()
	previous := newLockToken
	newLockToken = func() string { return idemToken }
	t.Cleanup(func() { newLockToken = previous })
}

func expectUnlock(mock redismock.ClientMock, released int64) {
	mock.ExpectEvalSha(unlockScript.Hash(), []string{idemLockKey}, idemToken).SetVal(released)
}

func idemRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, idemPath, strings.NewReader(body))
	req.Header.Set(IdempotencyHeader, "k1")
	return req
}

type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	if h.status >= 400 {
		api.Fail(w, h.status, "validation_error", "bad", "")
		return
	}
	api.Created(w, map[string]string{"id": "1"}, "")
}

func storedFor(t *testing.T, body string, status int, response string) []byte {
	t.Helper()
	encoded, err := json.Marshal(storedResponse{
		RequestHash: RequestHash([]byte(body)),
		Status:      status,
		ContentType: "application/json",
		Body:        []byte(response),
	})
	require.NoError(t, err)
	return encoded
}

const createdBody = "{\"success\":true,\"data\":{\"id\":\"1\"}}\n"

func TestIdempotencyWithoutRedisPassesThrough(t *testing.T) {
	next := &countingHandler{}
	handler := Idempotency(nil, idemTTL, zap.NewNop())(next)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, idemRequest(idemBody))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, next.calls)
}

func TestIdempotencyStoresFirstSuccess(t *testing.T) {
	fixedLockToken(t)
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet(idemCacheKey).RedisNil()
	mock.ExpectSetNX(idemLockKey, idemToken, idempotencyLockTTL).SetVal(true)
	mock.ExpectSet(idemCacheKey, storedFor(t, idemBody, http.StatusCreated, createdBody), idemTTL).SetVal("OK")
	expectUnlock(mock, 1)

	next := &countingHandler{}
	rec := httptest.NewRecorder()
	Idempotency(rdb, idemTTL, zap.NewNop())(next).ServeHTTP(rec, idemRequest(idemBody))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet(idemCacheKey).SetVal(string(storedFor(t, idemBody, http.StatusCreated, createdBody)))

	next := &countingHandler{}
	rec := httptest.NewRecorder()
	Idempotency(rdb, idemTTL, zap.NewNop())(next).ServeHTTP(rec, idemRequest(idemBody))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(ReplayHeader))
	assert.Equal(t, createdBody, rec.Body.String())
	assert.Zero(t, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRejectsDifferentPayload(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet(idemCacheKey).SetVal(string(storedFor(t, idemBody, http.StatusCreated, createdBody)))

	next := &countingHandler{}
	rec := httptest.NewRecorder()
	Idempotency(rdb, idemTTL, zap.NewNop())(next).ServeHTTP(rec, idemRequest(`{"code":"HRA"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "idempotency_conflict")
	assert.Zero(t, next.calls)
}

func TestIdempotencyConcurrentDuplicate(t *testing.T) {
	fixedLockToken(t)
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet(idemCacheKey).RedisNil()
	mock.ExpectSetNX(idemLockKey, idemToken, idempotencyLockTTL).SetVal(false)

	next := &countingHandler{}
	rec := httptest.NewRecorder()
	Idempotency(rdb, idemTTL, zap.NewNop())(next).ServeHTTP(rec, idemRequest(idemBody))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_in_progress")
	assert.Zero(t, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	fixedLockToken(t)
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet(idemCacheKey).RedisNil()
	mock.ExpectSetNX(idemLockKey, idemToken, idempotencyLockTTL).SetVal(true)
	expectUnlock(mock, 1)

	next := &countingHandler{status: http.StatusBadRequest}
	rec := httptest.NewRecorder()
	Idempotency(rdb, idemTTL, zap.NewNop())(next).ServeHTTP(rec, idemRequest(idemBody))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyIgnoresRequestsWithoutKey(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	next := &countingHandler{}
	handler := Idempotency(rdb, idemTTL, zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodPost, idemPath, strings.NewReader(idemBody))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	req = httptest.NewRequest(http.MethodGet, idemPath, nil)
	req.Header.Set(IdempotencyHeader, "k1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 2, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestHashDeterministic(t *testing.T) {
	assert.Equal(t, RequestHash([]byte("payload")), RequestHash([]byte("payload")))
	assert.NotEqual(t, RequestHash([]byte("payload")), RequestHash([]byte("other")))
}

type cancellingHandler struct {
	cancel context.CancelFunc
}

func (h cancellingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.Created(w, map[string]string{"id": "1"}, "")
	h.cancel()
}

func TestIdempotencySurvivesClientDisconnect(t *testing.T) {
	fixedLockToken(t)
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet(idemCacheKey).RedisNil()
	mock.ExpectSetNX(idemLockKey, idemToken, idempotencyLockTTL).SetVal(true)
	mock.ExpectSet(idemCacheKey, storedFor(t, idemBody, http.StatusCreated, createdBody), idemTTL).SetVal("OK")
	expectUnlock(mock, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := httptest.NewRecorder()
	Idempotency(rdb, idemTTL, zap.NewNop())(cancellingHandler{cancel: cancel}).ServeHTTP(rec, idemRequest(idemBody).WithContext(ctx))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyLeavesForeignLockAlone(t *testing.T) {
	fixedLockToken(t)
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet(idemCacheKey).RedisNil()
	mock.ExpectSetNX(idemLockKey, idemToken, idempotencyLockTTL).SetVal(true)
	mock.ExpectSet(idemCacheKey, storedFor(t, idemBody, http.StatusCreated, createdBody), idemTTL).SetVal("OK")
	// The lock expired mid-request and another request now owns it.
	expectUnlock(mock, 0)

	rec := httptest.NewRecorder()
	Idempotency(rdb, idemTTL, zap.NewNop())(&countingHandler{}).ServeHTTP(rec, idemRequest(idemBody))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
