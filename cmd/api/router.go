package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/swenlog/carrier-directory/internal/config"
	"github.com/swenlog/carrier-directory/internal/logging"
	"github.com/swenlog/carrier-directory/internal/metrics"
	"github.com/swenlog/carrier-directory/internal/modules/auth"
	"github.com/swenlog/carrier-directory/internal/modules/carrier"
	"github.com/swenlog/carrier-directory/internal/modules/port"
	"github.com/swenlog/carrier-directory/internal/modules/shipping"
	"github.com/swenlog/carrier-directory/internal/modules/upload"
)

func newAuthService(cfg config.AuthOptions) (auth.Service, error) {
	return auth.NewService(cfg.JWTSecret, cfg.TokenTTL,
		auth.DemoAccounts(cfg.AdminUsername, cfg.AdminPassword, cfg.UserUsername, cfg.UserPassword))
}

func newRouter(cfg *config.Config, db *sql.DB, logger *logrus.Logger, m *metrics.Metrics) (*chi.Mux, error) {
	authService, err := newAuthService(cfg.Auth)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := auth.NewLoginLimiter(cfg.Auth.LoginRateLimit)
	if err != nil {
		return nil, err
	}
	requireAdmin := auth.RequireRole(authService, auth.RoleAdmin)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, m.Handler())
	}

	// ── Identity ────────────────────────────────────────────
	auth.NewHandler(authService, loginLimiter).RegisterRoutes(router)

	// ── Directory ───────────────────────────────────────────
	carrierService := carrier.NewService(carrier.NewPostgresRepository(db))
	carrier.NewHandler(carrierService, requireAdmin).RegisterRoutes(router)

	portService := port.NewService(port.NewPostgresRepository(db), m)
	port.NewHandler(portService, requireAdmin, cfg.Server.MaxUploadSize).RegisterRoutes(router)

	shippingRepo := shipping.NewPostgresRepository(db)
	shipping.NewHandler(shipping.NewService(shippingRepo), requireAdmin).RegisterRoutes(router)

	// ── Bulk import ─────────────────────────────────────────
	uploadService := upload.NewService(shippingRepo, m)
	upload.NewHandler(uploadService, requireAdmin, cfg.Server.MaxUploadSize).RegisterRoutes(router)

	return router, nil
}
