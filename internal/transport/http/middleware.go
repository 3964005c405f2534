package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/jwttoken"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
	dErrors "github.com/CthulhuOnIce/Stasi-sub000/pkg/domain-errors"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/httputil"
)

// TokenValidator validates bearer tokens into claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

type contextKeyUserID struct{}
type contextKeyAdmin struct{}

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) domain.UserID {
	userID, _ := ctx.Value(contextKeyUserID{}).(domain.UserID)
	return userID
}

// IsAdmin reports whether the authenticated user carries the admin claim.
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(contextKeyAdmin{}).(bool)
	return admin
}

// WithUser injects auth context directly. Handler tests use this instead of
// minting tokens.
func WithUser(ctx context.Context, user domain.UserID, admin bool) context.Context {
	ctx = context.WithValue(ctx, contextKeyUserID{}, user)
	return context.WithValue(ctx, contextKeyAdmin{}, admin)
}

// RequireAuth validates the bearer token and stores the caller's identity in
// the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", middleware.GetReqID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", middleware.GetReqID(ctx), "error", err)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			ctx = WithUser(ctx, domain.UserID(claims.UserID), claims.Admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the admin claim. Must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "administrator access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger emits one structured line per request.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
