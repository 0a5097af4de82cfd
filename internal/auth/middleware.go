package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/accountd/internal/respond"
)

type ctxKey struct{}

// FromContext returns the verified claims attached by Middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

// Middleware gates protected routes on a `Authorization: Bearer <token>`
// header. A missing token answers 401, any verification failure 403; on
// success the claims ride the request context into the handler. No database
// access happens here, which is why the check can run before any store
// round-trip.
func Middleware(issuer *Issuer, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				respond.Fail(w, http.StatusUnauthorized, "Access token required")
				return
			}
			claims, err := issuer.Verify(token)
			if err != nil {
				logger.Debugw("token rejected", "reason", err, "path", r.URL.Path)
				respond.Fail(w, http.StatusForbidden, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
		})
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
