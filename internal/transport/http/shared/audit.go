package shared

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"hradmin/internal/domain/audit"
	"hradmin/internal/transport/http/middleware"
)

// RecordAudit stamps entry with the caller, request id and client IP and
// writes it. A failed write is logged; the request has already succeeded.
func RecordAudit(r *http.Request, recorder audit.Recorder, logger *zap.Logger, entry audit.Entry) {
	if recorder == nil {
		return
	}
	if user, ok := middleware.GetUser(r.Context()); ok {
		entry.ActorID = user.UserID
	}
	entry.RequestID = middleware.GetRequestID(r.Context())
	entry.IP = middleware.ClientIP(r)
	if err := recorder.Record(context.WithoutCancel(r.Context()), entry); err != nil {
		logger.Warn("audit record failed",
			zap.String("action", entry.Action),
			zap.String("entityId", entry.EntityID),
			zap.Error(err),
		)
	}
}
