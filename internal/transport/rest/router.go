package rest

import (
	"log/slog"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/learning-platform/internal/auth"
	"github.com/frahmantamala/learning-platform/internal/enrollment"
	"github.com/frahmantamala/learning-platform/internal/learner"
	"github.com/frahmantamala/learning-platform/internal/payment"
	"github.com/frahmantamala/learning-platform/internal/program"
	"github.com/frahmantamala/learning-platform/internal/transport"
	"github.com/frahmantamala/learning-platform/internal/transport/middleware"
	"github.com/frahmantamala/learning-platform/internal/transport/swagger"
)

type Handlers struct {
	Health     *HealthHandler
	Auth       *auth.Handler
	Authorizer middleware.Authorizer
	Learner    *learner.Handler
	Program    *program.Handler
	Enrollment *enrollment.Handler
	Payment    *payment.Handler
	Webhook    *payment.WebhookHandler
	Docs       *swagger.Docs
}

type RouterConfig struct {
	AllowedOrigins string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, cfg RouterConfig, logger *slog.Logger) {
	base := transport.NewBaseHandler(logger)

	// Apply global middleware
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if h.Docs != nil {
		router.Get("/openapi.yml", h.Docs.ServeSpec)
		router.Handle("/swagger/*", h.Docs.UI())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.Health)
		r.Get("/ping", h.Health.Ping)

		// Authenticated by its signature, not by a learner token
		r.Post("/payments/webhook", h.Webhook.HandleCallback)

		r.Post("/auth/login", h.Auth.Login)

		r.Get("/programs", h.Program.GetPrograms)
		r.Get("/programs/{programID}", h.Program.GetProgram)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(h.Authorizer, base))

			pr.Get("/learners/me", h.Learner.GetCurrentLearner)

			pr.Post("/programs/{programID}/enrollments", h.Enrollment.Enroll)
			pr.Get("/enrollments", h.Enrollment.ListMine)

			pr.Route("/payments", func(pmr chi.Router) {
				pmr.Post("/orders", h.Payment.InitiatePurchase)
				pmr.Get("/orders", h.Payment.ListOrders)
				pmr.Post("/verify", h.Payment.VerifyPayment)
			})
		})
	})
}
