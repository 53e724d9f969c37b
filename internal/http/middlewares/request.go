package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// statusWriter captura el status code para log y métricas.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// WithRequestContext genera el request ID, inyecta un logger scoped en el
// contexto y registra cada request terminada (log + métricas).
func WithRequestContext() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", reqID)

			log := logger.With(
				logger.RequestID(reqID),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			ctx := setRequestID(r.Context(), reqID)
			ctx = logger.ToContext(ctx, log)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			elapsed := time.Since(start)
			metrics.HTTPObserved(r.Method, r.URL.Path, strconv.Itoa(sw.status), elapsed.Seconds())
			log.Info("request completed",
				logger.Status(sw.status),
				logger.Duration(elapsed),
			)
		})
	}
}
