package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	_ "budgetbook/docs"
	"budgetbook/internal/activity"
	"budgetbook/internal/category"
	"budgetbook/internal/config"
	"budgetbook/internal/database"
	"budgetbook/internal/group"
	"budgetbook/internal/notification"
	"budgetbook/internal/settlement"
	"budgetbook/internal/transaction"
	"budgetbook/internal/transaction/split"
	"budgetbook/internal/user"
	"budgetbook/pkg/logging"
	"budgetbook/pkg/metrics"
	mw "budgetbook/pkg/middleware"
)

// @title           Budgetbook API
// @version         1.0
// @description     Group expense ledger with split tracking, balances, and settle-up.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	logging.Setup()
	cfg := config.Load()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready")

	// Notifications are stored locally by default; with a broker
	// configured they are published for an external delivery worker.
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationService)

	var notifier notification.Notifier = notificationService
	if cfg.AMQPURL != "" {
		publisher, err := notification.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			slog.Error("failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		notifier = publisher
		slog.Info("publishing notifications to AMQP", "exchange", cfg.AMQPExchange)
	}

	activityRepo := activity.NewRepository(db)
	activityService := activity.NewService(activityRepo)

	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	groupRepo := group.NewRepository(db)
	groupService := group.NewService(groupRepo, userService, activityService, notifier)
	groupHandler := group.NewHandler(groupService)

	splitFactory := split.NewFactory()
	transactionRepo := transaction.NewRepository(db)
	transactionService := transaction.NewService(transactionRepo, groupService, splitFactory, activityService, notifier)
	transactionHandler := transaction.NewHandler(transactionService)

	categoryRepo := category.NewRepository(db)
	settlementService := settlement.NewService(groupService, transactionService, categoryRepo, activityService, notifier)
	settlementHandler := settlement.NewHandler(settlementService)

	activityHandler := activity.NewHandler(activityService, groupService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(cfg.JWTSecret))

		r.Mount("/users", userHandler.Routes())
		r.Mount("/groups", groupHandler.Routes())
		r.Mount("/transactions", transactionHandler.Routes())
		r.Mount("/settlements", settlementHandler.Routes())
		r.Mount("/activity", activityHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
