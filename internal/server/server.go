// Package server wires the chi route layer over the service layer. The
// handlers stay thin: decode, call the service, map the error kind to a
// status code.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaibhavdeo21/Finance-Server/internal/auth"
	"github.com/vaibhavdeo21/Finance-Server/internal/middleware"
	"github.com/vaibhavdeo21/Finance-Server/internal/service"
)

// Server holds the services exposed over HTTP.
type Server struct {
	authSvc       *service.AuthService
	groupSvc      *service.GroupService
	expenseSvc    *service.ExpenseService
	settlementSvc *service.SettlementService
	rbacSvc       *service.RbacService
	paymentSvc    *service.PaymentService
	jwtManager    *auth.JWTManager
}

// New creates a Server over the given services.
func New(
	authSvc *service.AuthService,
	groupSvc *service.GroupService,
	expenseSvc *service.ExpenseService,
	settlementSvc *service.SettlementService,
	rbacSvc *service.RbacService,
	paymentSvc *service.PaymentService,
	jwtManager *auth.JWTManager,
) *Server {
	return &Server{
		authSvc:       authSvc,
		groupSvc:      groupSvc,
		expenseSvc:    expenseSvc,
		settlementSvc: settlementSvc,
		rbacSvc:       rbacSvc,
		paymentSvc:    paymentSvc,
		jwtManager:    jwtManager,
	}
}

// Router builds the full route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Metrics)
	r.Use(middleware.RequestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public routes
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/payments/webhook", s.handleWebhook)

	// Protected routes - require a valid session token
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.jwtManager))

		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/me", s.handleCurrentUser)
		r.Put("/auth/me", s.handleUpdateProfile)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", s.handleCreateGroup)
			r.Get("/", s.handleListGroups)
			r.Get("/status", s.handleGroupsByStatus)

			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", s.handleGetGroup)
				r.Put("/", s.handleUpdateGroup)
				r.Delete("/", s.handleDeleteGroup)
				r.Post("/members", s.handleAddMembers)
				r.Delete("/members", s.handleRemoveMember)
				r.Put("/members/role", s.handleChangeMemberRole)
				r.Put("/budget", s.handleUpdateBudget)
				r.Get("/audit", s.handleAudit)

				r.Post("/expenses", s.handleAddExpense)
				r.Get("/expenses", s.handleListExpenses)
				r.Get("/summary", s.handleGroupSummary)

				r.Post("/settlement/request", s.handleRequestSettlement)
				r.Post("/settlement/approve", s.handleApproveMember)
				r.Post("/settlement/confirm", s.handleConfirmSettlement)
				r.Post("/settlement/reopen", s.handleReopenGroup)
			})
		})

		r.Route("/rbac/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/", s.handleListUsers)
			r.Put("/{userID}", s.handleUpdateUser)
			r.Delete("/{userID}", s.handleDeleteUser)
		})

		r.Post("/payments/order", s.handleCreateOrder)
		r.Get("/payments/subscription", s.handleSubscriptionStatus)
	})

	return r
}
