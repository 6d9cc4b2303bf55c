// Package accessengine предоставляет маршруты API-сервиса.
package accessengine

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/access-engine/internal/config"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/access/cancel"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/access/status"
	adminlogin "github.com/magabrotheeeer/access-engine/internal/http/handlers/admin/login"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/admin/purchaselookup"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/admin/reconcile"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/admin/servercreate"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/admin/serverlist"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/admin/serverupdate"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/health"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/payment/paymentconfirm"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/access-engine/internal/http/handlers/plan/planlist"
	"github.com/magabrotheeeer/access-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/access-engine/internal/lib/identity"
	"github.com/magabrotheeeer/access-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/access-engine/internal/plans"
	authservice "github.com/magabrotheeeer/access-engine/internal/services/auth"
	ledgerservice "github.com/magabrotheeeer/access-engine/internal/services/ledger"
	reconcilerservice "github.com/magabrotheeeer/access-engine/internal/services/reconciler"
	"github.com/magabrotheeeer/access-engine/internal/storage/repository"
)

// RouteDeps — зависимости маршрутов API-сервиса.
type RouteDeps struct {
	Ledger     *ledgerservice.LedgerService
	Reconciler *reconcilerservice.ReconcilerService
	Auth       *authservice.AuthService
	Catalog    *plans.Catalog
	Storage    *repository.Storage
	Verifier   *identity.Verifier
	JWTMaker   jwt.Maker
	Channels   []config.PaymentChannel
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps *RouteDeps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/plans", planlist.New(logger, deps.Catalog).ServeHTTP)
		r.Post("/admin/login", adminlogin.New(logger, deps.Auth).ServeHTTP)

		// Вебхуки платёжных каналов: аутентификация подписью тела запроса
		r.Post("/payments/{channel}/confirm", paymentconfirm.New(logger, deps.Reconciler, deps.Channels).ServeHTTP)

		// Группа с проверкой identity-токена пользователя
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.IdentityMiddleware(deps.Verifier, deps.Storage, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/payments", paymentcreate.New(logger, deps.Reconciler).ServeHTTP)
			r.Get("/access/status", status.New(logger, deps.Ledger).ServeHTTP)
			r.Post("/access/cancel", cancel.New(logger, deps.Ledger).ServeHTTP)
		})

		// Административная группа с проверкой JWT
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.JWTMaker, logger))
			r.Get("/admin/servers", serverlist.New(logger, deps.Storage).ServeHTTP)
			r.Post("/admin/servers", servercreate.New(logger, deps.Storage).ServeHTTP)
			r.Patch("/admin/servers/{id}", serverupdate.New(logger, deps.Storage).ServeHTTP)
			r.Get("/admin/purchases/{order_id}", purchaselookup.New(logger, deps.Storage).ServeHTTP)
			r.Post("/admin/reconcile", reconcile.New(logger, deps.Reconciler).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
