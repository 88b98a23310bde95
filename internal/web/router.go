package web

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/znz-systems/fraudmail/internal/web/handlers"
	"github.com/znz-systems/fraudmail/internal/web/middleware"
)

// RouterDeps holds all dependencies needed to build the router.
type RouterDeps struct {
	ClientHandler  *handlers.ClientHandler
	CompanyHandler *handlers.CompanyHandler
	EmailHandler   *handlers.EmailHandler
	HealthHandler  *handlers.HealthHandler
	Logger         *slog.Logger
	MaxBodyBytes   int64
}

// NewRouter wires all routes into a Chi router.
func NewRouter(deps RouterDeps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLog(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.StripSlashes)

	r.Get("/healthz", deps.HealthHandler.HandleHealth)

	r.Group(func(r chi.Router) {
		if deps.MaxBodyBytes > 0 {
			r.Use(chiMiddleware.RequestSize(deps.MaxBodyBytes))
		}

		r.Route("/client", func(r chi.Router) {
			r.Get("/", deps.ClientHandler.HandleList)
			r.Post("/", deps.ClientHandler.HandleCreate)
			r.Get("/{clientID}", deps.ClientHandler.HandleGet)
			r.Put("/{clientID}", deps.ClientHandler.HandleUpdate)
			r.Delete("/{clientID}", deps.ClientHandler.HandleDelete)

			r.Post("/{clientID}/emails", deps.EmailHandler.HandleBulkCreate)
			r.Get("/{clientID}/emails", deps.EmailHandler.HandleSearch)
		})

		r.Route("/company", func(r chi.Router) {
			r.Get("/", deps.CompanyHandler.HandleList)
			r.Post("/", deps.CompanyHandler.HandleCreate)
			r.Get("/{companyID}", deps.CompanyHandler.HandleGet)
			r.Put("/{companyID}", deps.CompanyHandler.HandleUpdate)
			r.Delete("/{companyID}", deps.CompanyHandler.HandleDelete)
		})
	})

	return r
}
