package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"campushub/config"
	_ "campushub/docs"
	"campushub/internal/adapters/auth"
	"campushub/internal/adapters/cache"
	"campushub/internal/adapters/email"
	"campushub/internal/adapters/messaging"
	"campushub/internal/adapters/metrics"
	"campushub/internal/adapters/payment"
	httpdelivery "campushub/internal/delivery/http"
	"campushub/internal/delivery/http/controllers"
	"campushub/internal/delivery/http/middleware"
	"campushub/internal/domain"
	"campushub/internal/jobs"
	"campushub/internal/repository/postgres"
	"campushub/internal/services"
)

const shutdownTimeout = 15 * time.Second

// @title Campus Hub Registration API
// @version 1.0
// @description Event registration for campus clubs: members, guests and paid checkout.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	logger := config.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Repositories
	registrationRepo := postgres.NewRegistrationRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	notificationRepo := postgres.NewGuestNotificationRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	codeRepo := postgres.NewVerificationCodeRepository(db)

	// Email
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.AWSRegion,
			AccessKeyID:     cfg.Email.AWSAccessKeyID,
			SecretAccessKey: cfg.Email.AWSSecretAccessKey,
		},
	}, logger)
	if err != nil {
		return err
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	// Redis backs the public count cache and the sweep lock; both are optional.
	var countCache domain.RegistrationCountCache
	var locker domain.Locker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, continuing without it", "addr", cfg.RedisAddr, "err", err)
		} else {
			countCache = cache.NewCountCache(rdb, cache.DefaultCountTTL, logger)
			locker = cache.NewLocker(rdb, logger)
		}
	}

	var publisher domain.RegistrationEventPublisher = messaging.NoopPublisher{Logger: logger}
	if cfg.RabbitMQURL != "" {
		p, err := messaging.NewPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("rabbitmq unreachable, registration events disabled", "err", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	tokens := auth.NewJWT(cfg.JWTSecret)

	// Services
	registrationService := services.NewRegistrationService(services.RegistrationDeps{
		Registrations: registrationRepo,
		Payments:      paymentRepo,
		Notifications: notificationRepo,
		Email:         emailService,
		Publisher:     publisher,
		CountCache:    countCache,
		Metrics:       collector,
		Logger:        logger,
		StoreTimeout:  cfg.StoreTimeout,
	})
	eventService := services.NewEventService(eventRepo, cfg.StoreTimeout)
	gateway := payment.NewGateway(payment.Config{KeyID: cfg.Razorpay.KeyID, KeySecret: cfg.Razorpay.KeySecret}, logger)
	paymentService := services.NewPaymentService(services.PaymentDeps{
		Events:         eventRepo,
		Registrations:  registrationService,
		Gateway:        gateway,
		LinkedAccounts: cfg.Razorpay.LinkedAccounts,
		Logger:         logger,
	})
	accountService := services.NewAccountService(services.AccountDeps{
		Users:          userRepo,
		Roles:          roleRepo,
		Codes:          codeRepo,
		Hasher:         auth.NewBcryptHasher(bcrypt.DefaultCost),
		Tokens:         tokens,
		TokenExpiry:    cfg.JWTExpiry,
		Email:          emailService,
		AllowedDomains: cfg.AllowedEmailDomains,
		Logger:         logger,
	})
	retentionService := services.NewRetentionService(registrationRepo, notificationRepo, collector, logger, time.Minute)

	sweeper := jobs.NewRetentionSweeper(retentionService, locker, cfg.RetentionSweepInterval, logger)
	go sweeper.Run(ctx)

	router := httpdelivery.NewRouter(httpdelivery.RouterDeps{
		Accounts:      controllers.NewAccountController(logger, accountService),
		Events:        controllers.NewEventController(logger, eventService),
		Registrations: controllers.NewRegistrationController(logger, registrationService, eventService),
		Checkout:      controllers.NewCheckoutController(logger, paymentService),
		Verifier:      tokens,
		Gatherer:      registry,
		Health:        db.PingContext,
		Logger:        logger,
	})
	var handler http.Handler = middleware.Metrics(collector, router)
	handler = middleware.CORS(cfg.AllowedOrigins, handler)
	handler = middleware.LoggingMiddleware(logger, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
