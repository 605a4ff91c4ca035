package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxStaffIDKey contextKey = "staff_id"
	ctxRoleKey    contextKey = "staff_role"
)

// TokenValidator validates a bearer token and returns the staff id and role.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// StaffAuth authenticates requests by validating the Bearer JWT and putting
// the staff identity into the request context. The ledger trusts this
// identity as the acting staff member.
func StaffAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			staffID, role, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxStaffIDKey, staffID)
			ctx = context.WithValue(ctx, ctxRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose role does not match.
// Apply after StaffAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromCtx(r.Context()) != role {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaffIDFromCtx returns the authenticated staff id, or uuid.Nil.
func StaffIDFromCtx(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxStaffIDKey).(uuid.UUID)
	return id
}

// RoleFromCtx returns the authenticated staff role, or "".
func RoleFromCtx(ctx context.Context) string {
	role, _ := ctx.Value(ctxRoleKey).(string)
	return role
}

// WithStaff returns a context carrying the given staff identity. Used in tests.
func WithStaff(ctx context.Context, staffID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxStaffIDKey, staffID)
	return context.WithValue(ctx, ctxRoleKey, role)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
