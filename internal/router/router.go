package router

import (
	"net/http"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/admin"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/auth"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/customers"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/middleware"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/models"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/transactions"
)

// New returns an http.Handler serving the API under /api/v1.
// Public routes cover login, customer self-registration and the kiosk balance
// lookup; transaction posting requires a staff token and the admin surface
// additionally requires the admin role.
func New(
	authHandler *auth.Handler,
	customerHandler *customers.Handler,
	txHandler *transactions.Handler,
	adminHandler *admin.Handler,
	validator middleware.TokenValidator,
) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	staff := middleware.StaffAuth(validator)
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return staff(middleware.RequireRole(models.RoleAdmin)(h))
	}

	// Public
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)
	mux.HandleFunc("POST "+base+"/customers/request-otp", customerHandler.RequestOTP)
	mux.HandleFunc("POST "+base+"/customers/verify-otp", customerHandler.VerifyOTP)
	mux.HandleFunc("POST "+base+"/customers", customerHandler.Create)
	mux.HandleFunc("GET "+base+"/customers/{phone}", customerHandler.GetBalance)

	// Staff (cashier or admin)
	mux.Handle("POST "+base+"/transactions/accrual", staff(http.HandlerFunc(txHandler.Accrue)))
	mux.Handle("POST "+base+"/transactions/redemption", staff(http.HandlerFunc(txHandler.Redeem)))

	// Admin only
	mux.Handle("GET "+base+"/transactions", adminOnly(txHandler.History))
	mux.Handle("GET "+base+"/admin/rule", adminOnly(adminHandler.GetRule))
	mux.Handle("PUT "+base+"/admin/rule", adminOnly(adminHandler.UpdateRule))
	mux.Handle("GET "+base+"/admin/summary", adminOnly(adminHandler.GetSummary))
	mux.Handle("GET "+base+"/admin/staff", adminOnly(adminHandler.ListStaff))
	mux.Handle("POST "+base+"/admin/staff", adminOnly(adminHandler.CreateStaff))
	mux.Handle("GET "+base+"/admin/staff/{id}", adminOnly(adminHandler.GetStaff))
	mux.Handle("PUT "+base+"/admin/staff/{id}", adminOnly(adminHandler.UpdateStaff))
	mux.Handle("DELETE "+base+"/admin/staff/{id}", adminOnly(adminHandler.DeactivateStaff))

	return mux
}
