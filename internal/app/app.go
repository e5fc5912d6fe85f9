package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/tastetrack/internal/domain/application"
	"github.com/xenking/tastetrack/internal/domain/auth"
	"github.com/xenking/tastetrack/internal/domain/catalog"
	"github.com/xenking/tastetrack/internal/domain/event"
	"github.com/xenking/tastetrack/internal/domain/order"
	"github.com/xenking/tastetrack/internal/domain/txn"
	"github.com/xenking/tastetrack/internal/domain/user"
	"github.com/xenking/tastetrack/internal/domain/vendor"
	"github.com/xenking/tastetrack/internal/handler"
	"github.com/xenking/tastetrack/internal/storage/kafka"
	"github.com/xenking/tastetrack/internal/storage/memory"
	"github.com/xenking/tastetrack/internal/storage/postgres"
	"github.com/xenking/tastetrack/internal/storage/redis"
	"github.com/xenking/tastetrack/pkg/health"
	"github.com/xenking/tastetrack/pkg/httpmiddleware"
)

// repositories is the storage backend selected by Config.Storage.
type repositories struct {
	users        user.Repository
	restaurants  catalog.RestaurantRepository
	menu         catalog.MenuRepository
	orders       order.Repository
	applications application.Repository
	tx           txn.Transactor
}

// openStorage connects the configured backend and registers its readiness
// check. The returned func releases it.
func openStorage(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (*repositories, func(), error) {
	if cfg.Storage == StorageMemory {
		lg.Warn("Using in-memory storage; data is lost on restart")
		s := memory.New()
		return &repositories{
			users:        s.Users(),
			restaurants:  s.Restaurants(),
			menu:         s.Menu(),
			orders:       s.Orders(),
			applications: s.Applications(),
			tx:           s,
		}, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "run migrations")
	}
	hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

	return &repositories{
		users:        postgres.NewUserRepository(pool),
		restaurants:  postgres.NewRestaurantRepository(pool),
		menu:         postgres.NewMenuRepository(pool),
		orders:       postgres.NewOrderRepository(pool),
		applications: postgres.NewApplicationRepository(pool),
		tx:           postgres.NewTransactor(pool),
	}, pool.Close, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(5*time.Second))

	repos, closeStorage, err := openStorage(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeStorage()

	// Optional idempotency keys.
	var idempotency order.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		idempotency = redis.NewIdempotencyStore(rdb, cfg.Orders.IdempotencyTTL)
		lg.Info("Idempotency keys enabled", zap.String("redis", cfg.Redis.Addr))
	}

	// Optional domain events.
	var events event.Publisher = event.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := p.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		}()
		events = p
		lg.Info("Event publishing enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens, err := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return errors.Wrap(err, "create token issuer")
	}
	guard := vendor.NewGuard(repos.restaurants)

	orderService, err := order.NewService(repos.orders, repos.users, repos.restaurants, repos.menu, guard, repos.tx, order.Options{
		AllowForeignItems: !cfg.Orders.StrictMenuScope,
		Idempotency:       idempotency,
		Events:            events,
		TracerProvider:    m.TracerProvider(),
		MeterProvider:     m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	applicationService, err := application.NewService(
		repos.applications, repos.users, repos.restaurants, hasher, repos.tx,
		application.Options{
			Events:         events,
			TracerProvider: m.TracerProvider(),
			MeterProvider:  m.MeterProvider(),
		},
	)
	if err != nil {
		return errors.Wrap(err, "create application service")
	}

	// HTTP handlers.
	h := handler.NewHandler(handler.Config{TrackingBaseURL: cfg.TrackingBaseURL}, handler.Services{
		Auth:         auth.NewService(repos.users, hasher, tokens),
		Catalog:      catalog.NewService(repos.restaurants, repos.menu),
		Orders:       orderService,
		Applications: applicationService,
		Vendor:       vendor.NewService(guard, repos.restaurants, repos.menu, repos.tx),
	})

	// Router: health endpoints + API routes on one server.
	router := mux.NewRouter()
	router.HandleFunc("/livez", healthSvc.LiveEndpoint).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthSvc.ReadyEndpoint).Methods(http.MethodGet)
	h.Register(router)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.IdempotencyHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.BearerOrClientIP,
				Skip:    isProbe,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("tastetrack-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz" || strings.HasPrefix(r.URL.Path, "/debug/")
}
