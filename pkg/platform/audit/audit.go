package audit

import (
	"context"
	"log/slog"

	"campaign/pkg/platform/attrs"
	"campaign/pkg/requestcontext"
)

// Emitter accepts audit events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// LogAudit logs event to the structured logger and forwards it to emitter.
// The subject and reason are pulled out of attrList by well-known keys.
func LogAudit(ctx context.Context, logger *slog.Logger, emitter Emitter, event AuditEvent, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	if logger != nil {
		args := append(attrList, "event", string(event), "log_type", "audit")
		logger.InfoContext(ctx, string(event), args...)
	}

	if emitter == nil {
		return
	}

	err := emitter.Emit(ctx, Event{
		Category:  event.Category(),
		Subject:   extractSubject(attrList),
		Action:    string(event),
		Decision:  attrs.ExtractString(attrList, "decision"),
		Reason:    attrs.ExtractString(attrList, "reason"),
		RequestID: requestID,
		ActorID:   requestcontext.Subject(ctx),
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}

var subjectKeys = []struct{ key, prefix string }{
	{"document_id", "document:"},
	{"job_id", "job:"},
	{"test_id", "split_test:"},
	{"recipient_id", "recipient:"},
	{"group", "cache_group:"},
}

func extractSubject(attrList []any) string {
	for _, k := range subjectKeys {
		if v := attrs.ExtractString(attrList, k.key); v != "" {
			return k.prefix + v
		}
	}
	return ""
}
