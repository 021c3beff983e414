package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coffee-backend/internal/handlers"
	"coffee-backend/internal/middleware"
	"coffee-backend/internal/models"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	farmerHandler *handlers.FarmerHandler,
	deliveryHandler *handlers.DeliveryHandler,
	paymentHandler *handlers.PaymentHandler,
	reconciliationHandler *handlers.ReconciliationHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	reportHandler *handlers.ReportHandler,
	totpHandler *handlers.TOTPHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/verify-2fa", authHandler.Verify2FA).Methods("POST")

	// Protected API routes - Users (admin only)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.Authenticate)
	usersAPI.HandleFunc("/me", userHandler.Me).Methods("GET")
	usersAPI.HandleFunc("", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.ListUsers)).ServeHTTP).Methods("GET")
	usersAPI.HandleFunc("", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.CreateUser)).ServeHTTP).Methods("POST")
	usersAPI.HandleFunc("/{id}", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.GetUser)).ServeHTTP).Methods("GET")
	usersAPI.HandleFunc("/{id}", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.UpdateUser)).ServeHTTP).Methods("PUT")
	usersAPI.HandleFunc("/{id}/active", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.SetActive)).ServeHTTP).Methods("PATCH")

	// Protected API routes - Two-factor authentication
	twoFAAPI := r.PathPrefix("/api/2fa").Subrouter()
	twoFAAPI.Use(authMiddleware.Authenticate)
	twoFAAPI.HandleFunc("/setup", totpHandler.Setup).Methods("POST")
	twoFAAPI.HandleFunc("/enable", totpHandler.Enable).Methods("POST")
	twoFAAPI.HandleFunc("/disable", totpHandler.Disable).Methods("POST")
	twoFAAPI.HandleFunc("/status", totpHandler.Status).Methods("GET")
	twoFAAPI.HandleFunc("/backup-codes", totpHandler.RegenerateBackupCodes).Methods("POST")

	// Protected API routes - Farmers
	farmersAPI := r.PathPrefix("/api/farmers").Subrouter()
	farmersAPI.Use(authMiddleware.Authenticate)
	farmersAPI.HandleFunc("", farmerHandler.ListFarmers).Methods("GET")
	farmersAPI.HandleFunc("", farmerHandler.CreateFarmer).Methods("POST")
	farmersAPI.HandleFunc("/{id}", farmerHandler.GetFarmer).Methods("GET")
	farmersAPI.HandleFunc("/{id}", farmerHandler.UpdateFarmer).Methods("PUT")
	farmersAPI.HandleFunc("/{id}/unpaid", reconciliationHandler.FarmerUnpaidTotals).Methods("GET")
	farmersAPI.HandleFunc("/{id}/statement", reportHandler.FarmerStatement).Methods("GET")

	// Protected API routes - Deliveries
	deliveriesAPI := r.PathPrefix("/api/deliveries").Subrouter()
	deliveriesAPI.Use(authMiddleware.Authenticate)
	deliveriesAPI.HandleFunc("", deliveryHandler.ListDeliveries).Methods("GET")
	deliveriesAPI.HandleFunc("", deliveryHandler.CreateDelivery).Methods("POST")
	deliveriesAPI.HandleFunc("/unpaid", reconciliationHandler.ListUnpaid).Methods("GET")
	deliveriesAPI.HandleFunc("/{id}", deliveryHandler.GetDelivery).Methods("GET")
	deliveriesAPI.HandleFunc("/{id}", deliveryHandler.UpdateDelivery).Methods("PUT")

	// Protected API routes - Payments
	paymentsAPI := r.PathPrefix("/api/payments").Subrouter()
	paymentsAPI.Use(authMiddleware.Authenticate)
	paymentsAPI.HandleFunc("", paymentHandler.ListPayments).Methods("GET")
	paymentsAPI.HandleFunc("", paymentHandler.CreatePayment).Methods("POST")
	paymentsAPI.HandleFunc("/{id}", paymentHandler.GetPayment).Methods("GET")
	paymentsAPI.HandleFunc("/{id}/void", paymentHandler.VoidPayment).Methods("POST")
	paymentsAPI.HandleFunc("/{id}/retry", paymentHandler.RetryPayment).Methods("POST")

	// Protected API routes - Analytics
	analyticsAPI := r.PathPrefix("/api/analytics").Subrouter()
	analyticsAPI.Use(authMiddleware.Authenticate)
	analyticsAPI.HandleFunc("/summary", analyticsHandler.Summary).Methods("GET")
	analyticsAPI.HandleFunc("/payments", analyticsHandler.Payments).Methods("GET")
	analyticsAPI.HandleFunc("/cashflow", analyticsHandler.Cashflow).Methods("GET")
	analyticsAPI.HandleFunc("/scorecards", analyticsHandler.Scorecards).Methods("GET")
	analyticsAPI.HandleFunc("/comparative", analyticsHandler.Comparative).Methods("GET")
	analyticsAPI.HandleFunc("/delivery-types", analyticsHandler.DeliveryTypes).Methods("GET")
	analyticsAPI.HandleFunc("/regions", analyticsHandler.Regions).Methods("GET")
	analyticsAPI.HandleFunc("/operational", analyticsHandler.Operational).Methods("GET")
	analyticsAPI.HandleFunc("/seasons", analyticsHandler.Seasons).Methods("GET")
	analyticsAPI.HandleFunc("/dashboard", analyticsHandler.Dashboard).Methods("GET")

	// Protected API routes - Reports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("/statements", reportHandler.BulkStatements).Methods("GET")
	reportsAPI.HandleFunc("/payments.csv", reportHandler.PaymentsCSV).Methods("GET")
	reportsAPI.HandleFunc("/archived", reportHandler.ListArchived).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
