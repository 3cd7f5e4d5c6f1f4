package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/cart-api/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Carts          *CartHandler
	Auth           *AuthHandler
	Items          *ItemHandler
	Tokens         *auth.Manager
	Health         func(ctx context.Context) error
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Health(r.Context()); err != nil {
			cfg.Logger.WarnContext(r.Context(), "health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
			return
		}
		respondJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", cfg.Auth.Register)
		r.Post("/auth/login", cfg.Auth.Login)

		r.Get("/items", cfg.Items.List)
		r.Get("/items/{id}", cfg.Items.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Tokens))
			r.Get("/cart", cfg.Carts.GetCart)
			r.Post("/cart/add", cfg.Carts.AddItem)
			r.Put("/cart", cfg.Carts.ReplaceCart)
		})
	})

	return otelhttp.NewHandler(r, "cart-api")
}
