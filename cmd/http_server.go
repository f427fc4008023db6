package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/auth"
	"github.com/frahmantamala/learning-platform/internal/cache"
	"github.com/frahmantamala/learning-platform/internal/core/events"
	"github.com/frahmantamala/learning-platform/internal/enrollment"
	enrollmentPostgres "github.com/frahmantamala/learning-platform/internal/enrollment/postgres"
	"github.com/frahmantamala/learning-platform/internal/gateway"
	"github.com/frahmantamala/learning-platform/internal/learner"
	learnerPostgres "github.com/frahmantamala/learning-platform/internal/learner/postgres"
	"github.com/frahmantamala/learning-platform/internal/notification"
	"github.com/frahmantamala/learning-platform/internal/payment"
	paymentPostgres "github.com/frahmantamala/learning-platform/internal/payment/postgres"
	"github.com/frahmantamala/learning-platform/internal/program"
	programPostgres "github.com/frahmantamala/learning-platform/internal/program/postgres"
	"github.com/frahmantamala/learning-platform/internal/reconciler"
	"github.com/frahmantamala/learning-platform/internal/transport"
	"github.com/frahmantamala/learning-platform/internal/transport/rest"
	"github.com/frahmantamala/learning-platform/internal/transport/swagger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// application holds everything the server and the workers share.
type application struct {
	config *internal.Config
	logger *slog.Logger

	sqlDB  *sqlx.DB
	gormDB *gorm.DB
	redis  *redis.Client

	cache    cache.Cache
	notifier payment.Notifier
	bus      *events.EventBus

	learners    *learnerPostgres.LearnerRepository
	programs    *programPostgres.ProgramRepository
	enrollments *enrollmentPostgres.EnrollmentRepository
	orders      *paymentPostgres.PaymentRepository
	history     *paymentPostgres.HistoryRepository

	paymentService *payment.Service

	closers []func()
}

func newApplication(ctx context.Context, cfg *internal.Config, lg *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: lg}

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.sqlDB = sqlDB
	app.closers = append(app.closers, func() {
		if err := sqlDB.Close(); err != nil {
			lg.Error("database close error", "error", err)
		}
	})

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}
	app.gormDB = gormDB

	app.initCache(ctx)
	app.initNotifier()

	app.learners = learnerPostgres.NewLearnerRepository(gormDB)
	app.programs = programPostgres.NewProgramRepository(gormDB)
	app.enrollments = enrollmentPostgres.NewEnrollmentRepository(gormDB)
	app.orders = paymentPostgres.NewPaymentRepository(gormDB)
	app.history = paymentPostgres.NewHistoryRepository(sqlDB)

	app.bus = events.NewEventBus(lg)
	payment.NewDispatcher(app.cache, app.notifier, app.learners, app.programs, lg).RegisterEventHandlers(app.bus)
	payment.NewEventHandler(lg).RegisterEventHandlers(app.bus)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:      cfg.Payment.GatewayBaseURL,
		ClientID:     cfg.Payment.ClientID,
		ClientSecret: cfg.Payment.ClientSecret,
		APIVersion:   cfg.Payment.APIVersion,
		Timeout:      cfg.Payment.Timeout,
	}, lg)

	app.paymentService = payment.NewService(payment.Dependencies{
		Repository:  app.orders,
		History:     app.history,
		Gateway:     gatewayClient,
		Enrollments: app.enrollments,
		Programs:    app.programs,
		Learners:    app.learners,
		Reconciler:  payment.NewReconciler(app.orders, app.bus, lg),
	}, payment.Config{
		Currency:    cfg.Payment.Currency,
		ReturnURL:   cfg.Payment.ReturnURL,
		CallbackURL: cfg.Payment.CallbackURL,
	}, lg)

	return app, nil
}

func (a *application) initCache(ctx context.Context) {
	if a.config.Redis.Addr == "" {
		a.logger.Warn("redis not configured, using in-process cache")
		a.cache = cache.NewMemoryCache()
		return
	}

	a.redis = cache.NewRedisClient(a.config.Redis.Addr, a.config.Redis.Password, a.config.Redis.DB)
	redisCache := cache.NewRedisCache(a.redis, a.logger)
	if err := redisCache.Ping(ctx); err != nil {
		a.logger.Warn("redis not reachable at startup", "addr", a.config.Redis.Addr, "error", err)
	}
	a.cache = redisCache
	a.closers = append(a.closers, func() { _ = a.redis.Close() })
}

func (a *application) initNotifier() {
	nc := a.config.Notification
	if nc.AMQPURL == "" {
		a.logger.Warn("notification broker not configured, confirmations are only logged")
		a.notifier = notification.NewLogNotifier(a.logger)
		return
	}

	publisher, err := notification.NewAMQPNotifier(nc.AMQPURL, nc.Exchange, nc.RoutingKey, a.logger)
	if err != nil {
		a.logger.Error("notification broker unavailable, confirmations are only logged", "error", err)
		a.notifier = notification.NewLogNotifier(a.logger)
		return
	}
	a.notifier = publisher
	a.closers = append(a.closers, publisher.Close)
}

func (a *application) healthChecks() map[string]rest.CheckFunc {
	checks := map[string]rest.CheckFunc{
		"postgres": a.sqlDB.PingContext,
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}
	return checks
}

// shutdown drains in-flight event handlers, then releases connections.
func (a *application) shutdown(ctx context.Context) {
	if err := a.bus.Wait(ctx); err != nil {
		a.logger.Warn("event handlers still running at shutdown", "error", err)
	}
	a.close()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *application) sweeper() *reconciler.Sweeper {
	rc := a.config.Reconciler
	return reconciler.NewSweeper(a.paymentService, reconciler.Config{
		Schedule:  rc.Schedule,
		MinAge:    rc.MinAge,
		MaxAge:    rc.MaxAge,
		BatchSize: rc.BatchSize,
		Workers:   rc.Workers,
	}, a.logger)
}

func startHTTPServer() {
	cfg, lg, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router, err := app.router(ctx)
	if err != nil {
		lg.Error("failed to build router", "error", err)
		app.close()
		os.Exit(1)
	}

	var sweeper *reconciler.Sweeper
	if cfg.Reconciler.Enabled {
		sweeper = app.sweeper()
		if err := sweeper.Start(ctx); err != nil {
			lg.Error("failed to start sweeper", "error", err)
			app.close()
			os.Exit(1)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("Starting HTTP server", "address", addr, "environment", cfg.Environment)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		lg.Info("Received signal, shutting down...")
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("Server shutdown error", "error", err)
	}
	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}
	app.shutdown(shutdownCtx)

	lg.Info("Server stopped")
}

func (a *application) router(ctx context.Context) (*chi.Mux, error) {
	cfg := a.config
	base := transport.NewBaseHandler(a.logger)

	docs, err := swagger.NewDocs(ctx)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.AccessTokenDuration)
	authService := auth.NewService(a.learners, tokens, cfg.Security.AccessTokenDuration, a.logger)

	allowUnsigned := cfg.Payment.UnsignedWebhooksAllowed(cfg.Environment)
	if allowUnsigned {
		a.logger.Warn("unsigned payment callbacks are accepted; never enable this in production")
	}
	verifier := gateway.NewSignatureVerifier(cfg.Payment.WebhookSecret, allowUnsigned, a.logger)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Health:     rest.NewHealthHandler(a.healthChecks()),
		Auth:       auth.NewHandler(base, authService),
		Authorizer: authService,
		Learner:    learner.NewHandler(base, learner.NewService(a.learners, a.cache, a.logger)),
		Program:    program.NewHandler(base, program.NewService(a.programs, a.logger)),
		Enrollment: enrollment.NewHandler(base, enrollment.NewService(a.enrollments, a.programs, a.cache, a.logger)),
		Payment:    payment.NewHandler(base, a.paymentService, a.logger),
		Webhook:    payment.NewWebhookHandler(base, a.paymentService, verifier, a.logger),
		Docs:       docs,
	}, rest.RouterConfig{AllowedOrigins: cfg.Server.AllowedOrigins}, a.logger)

	return router, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
