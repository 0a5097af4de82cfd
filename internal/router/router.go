package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/accountd/internal/auth"
	"github.com/ovaphlow/accountd/internal/query"
	"github.com/ovaphlow/accountd/internal/respond"
	"github.com/ovaphlow/accountd/internal/user"
	"github.com/ovaphlow/accountd/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// RequestIDMiddleware assigns each request an ID, echoes it in X-Request-Id
// and exposes it to downstream log lines via the header.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = utilities.NewRequestID()
				r.Header.Set("X-Request-Id", id)
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			// ensure status is set
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
				"request_id", r.Header.Get("X-Request-Id"),
			)
		})
	}
}

// RecoveryMiddleware converts panics into a generic 500 envelope instead of
// tearing the process down. The full panic value stays in server logs only.
func RecoveryMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorw("panic recovered", "panic", rec, "path", r.URL.Path)
					respond.Fail(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
// It is intentionally simple and conservative so it works with most setups.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Clickjacking protection
			w.Header().Set("X-Frame-Options", "DENY")

			// Referrer policy
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")

			// HSTS - instruct browsers to use HTTPS for future requests. Only set if request is over TLS.
			if r.TLS != nil {
				// 30 days by default
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, issuer *auth.Issuer) http.Handler {
	mux := http.NewServeMux()

	// health: a round-trip through the pool, not just a process liveness check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		var dbTime time.Time
		if err := db.GetContext(r.Context(), &dbTime, "SELECT NOW()"); err != nil {
			logger.Errorw("health check failed", "err", err)
			respond.Fail(w, http.StatusInternalServerError, "Database connection failed")
			return
		}
		respond.JSON(w, http.StatusOK, "Database connection healthy",
			map[string]any{"db_time": dbTime})
	})

	userHandler := user.NewHandler(db, issuer, logger)
	mux.HandleFunc("POST /register", userHandler.Register)
	mux.HandleFunc("POST /login", userHandler.Login)

	// protected routes behind the bearer-token middleware
	protect := auth.Middleware(issuer, logger)
	mux.Handle("GET /users", protect(http.HandlerFunc(userHandler.List)))
	mux.Handle("GET /profile", protect(http.HandlerFunc(userHandler.Profile)))
	mux.Handle("PUT /profile", protect(http.HandlerFunc(userHandler.Update)))
	mux.Handle("DELETE /users/{id}", protect(http.HandlerFunc(userHandler.Delete)))

	queryHandler := query.NewHandler(db, logger)
	mux.Handle("POST /query", protect(http.HandlerFunc(queryHandler.Execute)))

	// unmatched routes answer with the same envelope shape as everything else
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respond.Fail(w, http.StatusNotFound,
			fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path))
	})

	// wrap with request id, logging, recovery and security headers
	handler := RequestIDMiddleware()(
		LoggingMiddleware(logger)(
			RecoveryMiddleware(logger)(
				SecurityHeadersMiddleware()(mux))))
	return handler
}
