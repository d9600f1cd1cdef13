package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web/mutil"
)

// Logger writes one line when a request starts and one when it completes.
// Server errors complete at warning level.
func Logger(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			entry := log.WithFields(logrus.Fields{
				"req_id": ContextRequestID(ctx),
				"method": r.Method,
				"path":   r.URL.Path,
				"lang":   i18n.Language(ctx).String(),
				"remote": r.RemoteAddr,
			})
			entry.Debug("started")

			start := time.Now()
			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			entry = entry.WithFields(logrus.Fields{
				"status":   lw.Status(),
				"bytes":    lw.BytesWritten(),
				"duration": time.Since(start).String(),
			})
			if lw.Status() >= http.StatusInternalServerError {
				entry.Warn("completed")
			} else {
				entry.Info("completed")
			}
			return err
		}
		return h
	}
	return m
}
