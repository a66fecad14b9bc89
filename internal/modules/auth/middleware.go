package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

type ctxKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*User)
	return u, ok && u != nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(svc Service) func(http.Handler) http.Handler {
	return RequireRole(svc, "")
}

// RequireRole rejects requests without a valid bearer token (401) or whose
// token does not carry role (403). An empty role accepts any user.
func RequireRole(svc Service, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			u, err := svc.Verify(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if role != "" && u.Role != role {
				respondError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// NewLoginLimiter builds a per-client-IP rate limiter from a formatted rate
// such as "10-M".
func NewLoginLimiter(formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	mw := stdlib.NewMiddleware(
		limiter.New(memory.NewStore(), rate),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		}),
	)
	return mw.Handler, nil
}
