package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/models"
)

type fakeValidator struct {
	id   uuid.UUID
	role string
	err  error
}

func (f *fakeValidator) ValidateToken(_ context.Context, _ string) (uuid.UUID, string, error) {
	return f.id, f.role, f.err
}

func TestStaffAuth_SetsIdentity(t *testing.T) {
	staffID := uuid.New()
	v := &fakeValidator{id: staffID, role: models.RoleCashier}

	var gotID uuid.UUID
	var gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = StaffIDFromCtx(r.Context())
		gotRole = RoleFromCtx(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	StaffAuth(v)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if gotID != staffID {
		t.Errorf("staff id: got %s, want %s", gotID, staffID)
	}
	if gotRole != models.RoleCashier {
		t.Errorf("role: got %q, want cashier", gotRole)
	}
}

func TestStaffAuth_MissingHeader(t *testing.T) {
	v := &fakeValidator{id: uuid.New(), role: models.RoleAdmin}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without a bearer token")
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	StaffAuth(v)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestStaffAuth_InvalidToken(t *testing.T) {
	v := &fakeValidator{err: errors.New("expired")}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run with an invalid token")
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer expiredtoken")
	rec := httptest.NewRecorder()
	StaffAuth(v)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	ran := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ran = true })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithStaff(req.Context(), uuid.New(), models.RoleCashier))
	rec := httptest.NewRecorder()
	RequireRole(models.RoleAdmin)(next).ServeHTTP(rec, req)

	if ran {
		t.Error("cashier must not pass an admin-only gate")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithStaff(req.Context(), uuid.New(), models.RoleAdmin))
	rec = httptest.NewRecorder()
	RequireRole(models.RoleAdmin)(next).ServeHTTP(rec, req)

	if !ran || rec.Code != http.StatusOK {
		t.Fatalf("admin should pass: ran=%v status=%d", ran, rec.Code)
	}
}
