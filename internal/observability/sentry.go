package observability

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
)

func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// RefreshReporter sends refresh failures that ended a session to Sentry.
type RefreshReporter struct {
	hub *sentry.Hub
}

// NewRefreshReporter reports through hub, or the global hub when hub is nil.
func NewRefreshReporter(hub *sentry.Hub) *RefreshReporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &RefreshReporter{hub: hub}
}

func (r *RefreshReporter) ReportRefreshFailure(err error) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "refresh")
		scope.SetTag("rejected", boolTag(errors.Is(err, autherrors.ErrRefreshRejected)))
		r.hub.CaptureException(err)
	})
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
