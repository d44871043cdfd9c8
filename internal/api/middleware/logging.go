// logging.go — middleware структурированного логирования HTTP-запросов.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// loggingResponseWriter перехватывает статус-код ответа.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

// Unwrap поддерживает http.ResponseController.
func (lw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lw.ResponseWriter
}

// RequestLogger логирует каждый HTTP-запрос: метод, путь, статус, длительность.
// Health и metrics логируются на уровне Debug, чтобы не засорять журнал
// опросами Kubernetes.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(lw, r)

			level := slog.LevelInfo
			switch {
			case lw.statusCode >= 500:
				level = slog.LevelError
			case lw.statusCode >= 400:
				level = slog.LevelWarn
			case r.URL.Path == "/health/live" || r.URL.Path == "/health/ready" || r.URL.Path == "/metrics":
				level = slog.LevelDebug
			}

			log.Log(r.Context(), level, "HTTP-запрос",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", lw.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}
