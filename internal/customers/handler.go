package customers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/ledger"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/otp"
)

type Handler struct {
	svc    *Service
	ledger ledger.Service
	log    *slog.Logger
}

func NewHandler(svc *Service, ledgerSvc ledger.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, ledger: ledgerSvc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/v1/customers/request-otp
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		http.Error(w, "phone is required", http.StatusBadRequest)
		return
	}
	err := h.svc.RequestCode(r.Context(), req.Phone)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"otp_sent":           true,
			"expires_in_minutes": int(otp.DefaultTTL.Minutes()),
		})
	case errors.Is(err, ErrAlreadyRegistered):
		http.Error(w, "phone number already registered", http.StatusConflict)
	case errors.Is(err, otp.ErrNotificationFailed):
		// The code exists and is valid; only delivery failed.
		http.Error(w, "could not deliver verification code", http.StatusBadGateway)
	default:
		h.log.Error("request otp failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// POST /api/v1/customers/verify-otp
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Code == "" {
		http.Error(w, "phone and code are required", http.StatusBadRequest)
		return
	}
	if !h.svc.VerifyCode(req.Phone, req.Code) {
		http.Error(w, "invalid or expired code", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verified": true})
}

// POST /api/v1/customers
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		FullName string `json:"full_name"`
		Age      int    `json:"age"`
		Sex      string `json:"sex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Phone == "" || req.FullName == "" || req.Age <= 0 || req.Sex == "" {
		http.Error(w, "phone, full_name, age and sex are required", http.StatusBadRequest)
		return
	}
	c, err := h.svc.Register(r.Context(), req.Phone, req.FullName, req.Age, req.Sex)
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			http.Error(w, "phone number already registered", http.StatusConflict)
			return
		}
		h.log.Error("register customer failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GET /api/v1/customers/{phone}
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	phone := r.PathValue("phone")
	if phone == "" {
		http.Error(w, "phone is required", http.StatusBadRequest)
		return
	}
	c, err := h.ledger.GetBalance(r.Context(), phone)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			http.Error(w, "customer not found", http.StatusNotFound)
			return
		}
		h.log.Error("balance lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"full_name": c.FullName,
		"balance":   c.Balance,
	})
}
