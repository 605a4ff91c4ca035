package transactions

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/ledger"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/middleware"
)

type Handler struct {
	ledger ledger.Service
	log    *slog.Logger
}

func NewHandler(ledgerSvc ledger.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{ledger: ledgerSvc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/v1/transactions/accrual
func (h *Handler) Accrue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone      string  `json:"phone"`
		SaleAmount float64 `json:"sale_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		http.Error(w, "phone and sale_amount are required", http.StatusBadRequest)
		return
	}
	staffID := middleware.StaffIDFromCtx(r.Context())

	res, err := h.ledger.Credit(r.Context(), req.Phone, req.SaleAmount, staffID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"customer_name":      res.CustomerName,
		"points_credited":    res.PointsCredited,
		"percentage_applied": res.PercentageApplied,
		"new_balance":        res.NewBalance,
	})
}

// POST /api/v1/transactions/redemption
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone  string  `json:"phone"`
		Points float64 `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		http.Error(w, "phone and points are required", http.StatusBadRequest)
		return
	}
	staffID := middleware.StaffIDFromCtx(r.Context())

	res, err := h.ledger.Debit(r.Context(), req.Phone, req.Points, staffID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"customer_name":   res.CustomerName,
		"points_redeemed": res.PointsRedeemed,
		"new_balance":     res.NewBalance,
	})
}

// GET /api/v1/transactions?limit=&page=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 20)
	page := parseQueryInt(r, "page", 1)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}

	records, err := h.ledger.History(r.Context(), limit, (page-1)*limit)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":         page,
		"limit":        limit,
		"transactions": records,
	})
}

func (h *Handler) writeLedgerError(w http.ResponseWriter, err error) {
	var insufficient *ledger.InsufficientBalanceError
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		http.Error(w, "amount must be greater than zero", http.StatusBadRequest)
	case errors.Is(err, ledger.ErrAccountNotFound):
		http.Error(w, "customer not found", http.StatusNotFound)
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":           "insufficient balance",
			"current_balance": insufficient.Balance,
		})
	default:
		h.log.Error("ledger operation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
