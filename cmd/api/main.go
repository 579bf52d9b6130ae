// @title Split the Bill API
// @version 1.0
// @description Bill allocation and settlement with live refresh over server-sent events.
// @BasePath /api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fkhayef/splitthebill/docs"
	"github.com/fkhayef/splitthebill/internal/bill"
	"github.com/fkhayef/splitthebill/internal/bill/split"
	"github.com/fkhayef/splitthebill/internal/config"
	"github.com/fkhayef/splitthebill/internal/database"
	"github.com/fkhayef/splitthebill/internal/jobs"
	"github.com/fkhayef/splitthebill/internal/notification"
	"github.com/fkhayef/splitthebill/internal/user"
	"github.com/fkhayef/splitthebill/pkg/logging"
	mw "github.com/fkhayef/splitthebill/pkg/middleware"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("connected to database", "driver", cfg.DBDriver)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Push channel
	notifier := notification.NewNotifier(cfg.HeartbeatInterval, reg)
	notificationHandler := notification.NewHandler(notifier)
	go notifier.Run(ctx)

	// Bill feature (with split factory injected)
	splitFactory := split.NewFactory()
	billRepo := bill.NewRepository(db)
	billService := bill.NewService(billRepo, splitFactory, notifier)
	billHandler := bill.NewHandler(billService)

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, billService)
	userHandler := user.NewHandler(userService)

	scheduler := jobs.NewScheduler(billService, cfg.AuditSchedule)
	if err := scheduler.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Identity)
	r.Use(mw.RequestLogger)
	r.Use(mw.Metrics(reg))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		bills := billHandler.Routes()
		notificationHandler.Attach(bills)

		r.Mount("/users", userHandler.Routes())
		r.Mount("/bills", bills)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// event streams never finish on their own
	notifier.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	scheduler.Stop()
}
