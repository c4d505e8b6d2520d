package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/sitespar/sitespar/internal/api/response"
)

// An analyze request fans out to slow scraper APIs and can legitimately run
// for over a minute, so the access log escalates only past this threshold
// instead of treating every long request as a problem.
const slowRequestAfter = 100 * time.Second

// responseTrace captures what the handler wrote so the access log can carry
// status and payload size.
type responseTrace struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (t *responseTrace) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTrace) Write(b []byte) (int, error) {
	n, err := t.ResponseWriter.Write(b)
	t.bytes += n
	return n, err
}

// Logger writes one structured access-log line per request. Reports can be
// large, so the byte count is logged alongside status and latency.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		trace := &responseTrace{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(trace, r)

		elapsed := time.Since(start)
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", trace.status,
			"bytes", trace.bytes,
			"duration_ms", elapsed.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if elapsed > slowRequestAfter {
			slog.Warn("slow request", attrs...)
			return
		}
		slog.Info("request", attrs...)
	})
}

// Recovery converts a handler panic into the standard error envelope. The
// provider fan-out recovers its own panics per fetch; this is the net under
// everything else.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("handler panic",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
