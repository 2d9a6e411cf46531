package http

import (
	"net/http"

	"puppychop-api/internal/delivery/http/handler"
	"puppychop-api/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	appointmentHandler *handler.AppointmentHandler
	catalogHandler     *handler.CatalogHandler
	authHandler        *handler.AuthHandler
	auditLogHandler    *handler.AuditLogHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
}

func NewRouter(
	appointmentHandler *handler.AppointmentHandler,
	catalogHandler *handler.CatalogHandler,
	authHandler *handler.AuthHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		appointmentHandler: appointmentHandler,
		catalogHandler:     catalogHandler,
		authHandler:        authHandler,
		auditLogHandler:    auditLogHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.Use(r.authMiddleware.Identify)

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)
	api.HandleFunc("/catalog", r.catalogHandler.GetCatalog).Methods(http.MethodGet)

	// Auth routes (public)
	api.HandleFunc("/auth/token", r.authHandler.IssueToken).Methods(http.MethodPost)

	// Appointment routes. Fixed paths are registered before {id}.
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.HandleFunc("", r.appointmentHandler.GetAllAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)
	appointments.HandleFunc("/validate", r.appointmentHandler.ValidateAppointment).Methods(http.MethodPost)
	appointments.HandleFunc("/stream", r.appointmentHandler.StreamAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/stats", r.appointmentHandler.GetStats).Methods(http.MethodGet)
	appointments.HandleFunc("/share", r.appointmentHandler.ShareAppointments).Methods(http.MethodGet)
	appointments.Handle("/confirmed", r.staffOnly(r.appointmentHandler.DeleteAllConfirmed)).Methods(http.MethodDelete)

	appointments.HandleFunc("/{id:[0-9]+}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	appointments.HandleFunc("/{id:[0-9]+}", r.appointmentHandler.UpdateAppointment).Methods(http.MethodPut)
	appointments.HandleFunc("/{id:[0-9]+}", r.appointmentHandler.DeleteAppointment).Methods(http.MethodDelete)
	appointments.HandleFunc("/{id:[0-9]+}/confirm", r.appointmentHandler.ConfirmAppointment).Methods(http.MethodPatch)
	appointments.HandleFunc("/{id:[0-9]+}/unconfirm", r.appointmentHandler.UnconfirmAppointment).Methods(http.MethodPatch)
	appointments.HandleFunc("/{id:[0-9]+}/toggle", r.appointmentHandler.ToggleConfirmed).Methods(http.MethodPatch)
	appointments.HandleFunc("/{id:[0-9]+}/confirmed", r.appointmentHandler.SetConfirmed).Methods(http.MethodPatch)
	appointments.HandleFunc("/{id:[0-9]+}/share", r.appointmentHandler.ShareAppointment).Methods(http.MethodGet)
	appointments.HandleFunc("/{id:[0-9]+}/notification", r.appointmentHandler.PreviewNotification).Methods(http.MethodGet)

	// Audit log routes (protected - staff only)
	auditLogs := api.PathPrefix("/audit-logs").Subrouter()
	auditLogs.Use(r.authMiddleware.Authenticate)
	auditLogs.Use(middleware.RequireStaff)
	auditLogs.HandleFunc("", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	auditLogs.HandleFunc("/{id:[0-9]+}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) staffOnly(fn http.HandlerFunc) http.Handler {
	return r.authMiddleware.Authenticate(middleware.RequireStaff(fn))
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
