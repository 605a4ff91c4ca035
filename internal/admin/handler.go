package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/google/uuid"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/auth"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/middleware"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/models"
)

// RuleStore is the reward rule and reporting storage the admin surface uses.
type RuleStore interface {
	GetRule(ctx context.Context) (*models.RewardRule, error)
	SetRule(ctx context.Context, percentage float64, updatedBy uuid.UUID) error
	GetSummary(ctx context.Context) (*Summary, error)
}

type Handler struct {
	store RuleStore
	auth  auth.Service
	log   *slog.Logger
}

func NewHandler(store RuleStore, authSvc auth.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, auth: authSvc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/admin/rule
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.store.GetRule(r.Context())
	if err != nil {
		h.log.Error("get reward rule failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rule == nil {
		writeJSON(w, http.StatusOK, map[string]any{"percentage": 0, "configured": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"percentage": rule.Percentage,
		"configured": true,
		"updated_by": rule.UpdatedBy,
		"updated_at": rule.UpdatedAt,
	})
}

// PUT /api/v1/admin/rule
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Percentage *float64 `json:"percentage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Percentage == nil {
		http.Error(w, "percentage is required", http.StatusBadRequest)
		return
	}
	pct := math.Round(*req.Percentage*100) / 100
	if pct < 0 || pct > 100 {
		http.Error(w, "percentage must be between 0 and 100", http.StatusBadRequest)
		return
	}
	adminID := middleware.StaffIDFromCtx(r.Context())
	if err := h.store.SetRule(r.Context(), pct, adminID); err != nil {
		h.log.Error("update reward rule failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.log.Info("reward rule updated", "percentage", pct, "updated_by", adminID)
	writeJSON(w, http.StatusOK, map[string]any{"percentage": pct})
}

// GET /api/v1/admin/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.GetSummary(r.Context())
	if err != nil {
		h.log.Error("summary query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GET /api/v1/admin/staff
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.auth.ListStaff(r.Context())
	if err != nil {
		h.log.Error("list staff failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

// POST /api/v1/admin/staff
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"full_name"`
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.FullName == "" || req.Username == "" || req.Password == "" {
		http.Error(w, "full_name, username and password are required", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleCashier
	}
	if !models.ValidRole(req.Role) {
		http.Error(w, "role must be admin or cashier", http.StatusBadRequest)
		return
	}
	staff, err := h.auth.CreateStaff(r.Context(), req.FullName, req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateUsername) {
			http.Error(w, "username already in use", http.StatusConflict)
			return
		}
		h.log.Error("create staff failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, staff)
}

// GET /api/v1/admin/staff/{id}
func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid staff id", http.StatusBadRequest)
		return
	}
	staff, err := h.auth.GetStaff(r.Context(), id)
	if err != nil {
		h.writeStaffError(w, err, "get staff failed")
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

// PUT /api/v1/admin/staff/{id}
func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid staff id", http.StatusBadRequest)
		return
	}
	var req struct {
		FullName *string `json:"full_name"`
		Role     *string `json:"role"`
		Password *string `json:"password"`
		Active   *bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	staff, err := h.auth.UpdateStaff(r.Context(), id, auth.StaffUpdate{
		FullName: req.FullName,
		Role:     req.Role,
		Password: req.Password,
		Active:   req.Active,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRole) {
			http.Error(w, "role must be admin or cashier", http.StatusBadRequest)
			return
		}
		h.writeStaffError(w, err, "update staff failed")
		return
	}
	h.log.Info("staff updated", "staff_id", id, "updated_by", middleware.StaffIDFromCtx(r.Context()))
	writeJSON(w, http.StatusOK, staff)
}

// DELETE /api/v1/admin/staff/{id}
// Soft delete: the staff member is deactivated so history joins keep working,
// and login is refused from now on.
func (h *Handler) DeactivateStaff(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid staff id", http.StatusBadRequest)
		return
	}
	staff, err := h.auth.DeactivateStaff(r.Context(), id)
	if err != nil {
		h.writeStaffError(w, err, "deactivate staff failed")
		return
	}
	h.log.Info("staff deactivated", "staff_id", id, "deactivated_by", middleware.StaffIDFromCtx(r.Context()))
	writeJSON(w, http.StatusOK, staff)
}

func (h *Handler) writeStaffError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, auth.ErrStaffNotFound) {
		http.Error(w, "staff member not found", http.StatusNotFound)
		return
	}
	h.log.Error(msg, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
