package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/service"
)

// NewRouter wires all routes. Write-heavy admin actions are admin-only;
// read and submit routes accept borrower sessions, with per-resource
// ownership checks inside the handlers.
func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyz)
	r.Handle("/metrics", promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth(service.RoleAdmin))

			r.Get("/borrowers", h.handleListBorrowers)
			r.Post("/borrowers", h.handleCreateBorrower)
			r.Patch("/borrowers/{id}", h.handleUpdateBorrower)
			r.Post("/borrowers/{id}/select", h.handleSelectBorrower)
			r.Get("/borrowers/selected", h.handleSelectedBorrower)

			r.Get("/applications", h.handleListApplications)
			r.Post("/applications/{id}/approve", h.handleApproveApplication)
			r.Post("/applications/{id}/reject", h.handleRejectApplication)

			r.Get("/payments", h.handleListPayments)
			r.Post("/payments/record", h.handleRecordPayment)
			r.Post("/payments/{id}/approve", h.handleResolvePayment)

			r.Get("/stats", h.handleStats)
			r.Post("/sync/refresh", h.handleSyncRefresh)
			r.Get("/metrics/sync", h.handleSyncMetrics)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth(service.RoleAdmin, service.RoleBorrower))

			r.Get("/borrowers/{id}", h.handleGetBorrower)
			r.Get("/borrowers/{id}/messages", h.handleListMessages)
			r.Post("/borrowers/{id}/messages", h.handleSendMessage)

			r.Get("/loans", h.handleListLoans)
			r.Get("/loans/{id}", h.handleGetLoan)
			r.Get("/loans/{id}/ledger", h.handleLoanLedger)

			r.Post("/payments", h.handleSubmitPayment)
			r.Post("/applications", h.handleSubmitApplication)
		})
	})

	return r
}
