package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hradmin/internal/transport/http/api"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayHeader      = "Idempotent-Replay"

	idempotencyLockTTL = 30 * time.Second
	maxIdempotencyKey  = 255
)

// unlockScript deletes the lock only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var newLockToken = uuid.NewString

type storedResponse struct {
	RequestHash string `json:"requestHash"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotency de-duplicates POST requests that carry an Idempotency-Key
// header. The first successful response is cached for ttl and replayed for
// repeats with the same body; a repeat that arrives while the first is still
// running gets 409. With a nil client the middleware does nothing.
func Idempotency(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			requestID := GetRequestID(r.Context())
			if len(key) > maxIdempotencyKey {
				api.Fail(w, http.StatusBadRequest, "invalid_idempotency_key", "idempotency key is too long", requestID)
				return
			}

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))
			hash := RequestHash(payload)

			actor := "anonymous"
			if user, ok := GetUser(r.Context()); ok {
				actor = user.UserID
			}
			cacheKey := "idemp:" + actor + ":" + r.URL.Path + ":" + key
			lockKey := cacheKey + ":lock"
			ctx := r.Context()

			raw, err := rdb.Get(ctx, cacheKey).Bytes()
			switch {
			case err == nil:
				var stored storedResponse
				if err := json.Unmarshal(raw, &stored); err == nil {
					if stored.RequestHash != hash {
						api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", requestID)
						return
					}
					w.Header().Set("Content-Type", stored.ContentType)
					w.Header().Set(ReplayHeader, "true")
					w.WriteHeader(stored.Status)
					_, _ = w.Write(stored.Body)
					return
				}
				logger.Warn("discarding unreadable idempotency entry", zap.String("key", cacheKey))
			case !errors.Is(err, redis.Nil):
				logger.Warn("idempotency lookup failed", zap.Error(err), zap.String("requestId", requestID))
				next.ServeHTTP(w, r)
				return
			}

			token := newLockToken()
			acquired, err := rdb.SetNX(ctx, lockKey, token, idempotencyLockTTL).Result()
			if err != nil {
				logger.Warn("idempotency lock failed", zap.Error(err), zap.String("requestId", requestID))
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				api.Fail(w, http.StatusConflict, "request_in_progress", "a request with this idempotency key is in progress", requestID)
				return
			}
			// Unlock and store outlive the request context: a client that
			// disconnects must not strand the lock or drop the response.
			detached := context.WithoutCancel(ctx)
			defer func() {
				released, err := unlockScript.Run(detached, rdb, []string{lockKey}, token).Int()
				switch {
				case err != nil:
					logger.Warn("idempotency unlock failed", zap.Error(err), zap.String("key", lockKey))
				case released == 0:
					logger.Warn("idempotency lock expired before the request finished", zap.String("key", lockKey))
				}
			}()

			capture := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			if capture.status < 200 || capture.status >= 300 {
				return
			}

			encoded, err := json.Marshal(storedResponse{
				RequestHash: hash,
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err == nil {
				err = rdb.Set(detached, cacheKey, encoded, ttl).Err()
			}
			if err != nil {
				logger.Warn("idempotency store failed", zap.Error(err), zap.String("key", cacheKey))
			}
		})
	}
}
