package accessengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/access-engine/internal/cache"
	"github.com/magabrotheeeer/access-engine/internal/config"
	"github.com/magabrotheeeer/access-engine/internal/lib/identity"
	"github.com/magabrotheeeer/access-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/access-engine/internal/migrations"
	"github.com/magabrotheeeer/access-engine/internal/plans"
	authservice "github.com/magabrotheeeer/access-engine/internal/services/auth"
	balancerservice "github.com/magabrotheeeer/access-engine/internal/services/balancer"
	ledgerservice "github.com/magabrotheeeer/access-engine/internal/services/ledger"
	reconcilerservice "github.com/magabrotheeeer/access-engine/internal/services/reconciler"
	"github.com/magabrotheeeer/access-engine/internal/storage/repository"
)

// App представляет API-сервис движка доступа.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New создает приложение: подключает хранилище, накатывает миграции,
// синхронизирует каталог тарифов, создает администратора из конфига
// и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	catalog, err := plans.Load(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	applied, err := catalog.SyncToStorage(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to sync plan catalog: %w", err)
	}
	if applied {
		logger.Info("plan catalog synced", slog.String("version", catalog.Version()))
	}

	balancerService := balancerservice.NewBalancerService(db, logger)
	ledgerService := ledgerservice.NewLedgerService(db, catalog, cacheRedis, balancerService, logger)
	reconcilerService := reconcilerservice.NewReconcilerService(db, ledgerService, balancerService, catalog, logger)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, jwtMaker, logger)
	if cfg.Admin.AdminUsername != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Admin.AdminUsername, cfg.Admin.AdminPassword); err != nil {
			return nil, fmt.Errorf("failed to ensure admin account: %w", err)
		}
	}

	verifier := identity.NewVerifier(cfg.IdentitySecret)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &RouteDeps{
		Ledger:     ledgerService,
		Reconciler: reconcilerService,
		Auth:       authService,
		Catalog:    catalog,
		Storage:    db,
		Verifier:   verifier,
		JWTMaker:   jwtMaker,
		Channels:   cfg.PaymentChannels,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close storage", slog.Any("err", closeErr))
		}
		return err
	}
}
