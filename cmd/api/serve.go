package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/encounter-api/internal/app"
	"github.com/jwalitptl/encounter-api/internal/config"
	"github.com/jwalitptl/encounter-api/internal/email"
	"github.com/jwalitptl/encounter-api/internal/handler/appointment"
	audithandler "github.com/jwalitptl/encounter-api/internal/handler/audit"
	"github.com/jwalitptl/encounter-api/internal/handler/draft"
	"github.com/jwalitptl/encounter-api/internal/handler/health"
	"github.com/jwalitptl/encounter-api/internal/handler/prescription"
	promhandler "github.com/jwalitptl/encounter-api/internal/handler/prometheus"
	workflowhandler "github.com/jwalitptl/encounter-api/internal/handler/workflow"
	"github.com/jwalitptl/encounter-api/internal/middleware"
	"github.com/jwalitptl/encounter-api/internal/router"
	"github.com/jwalitptl/encounter-api/internal/service/audit"
	"github.com/jwalitptl/encounter-api/internal/service/encounter"
	"github.com/jwalitptl/encounter-api/internal/service/notification"
	"github.com/jwalitptl/encounter-api/pkg/auth"
	"github.com/jwalitptl/encounter-api/pkg/logger"
	"github.com/jwalitptl/encounter-api/pkg/messaging"
	"github.com/jwalitptl/encounter-api/pkg/metrics"
	"github.com/jwalitptl/encounter-api/pkg/worker"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("config")
			relay, _ := cmd.Flags().GetBool("relay")
			return runServer(file, relay)
		},
	}
	cmd.Flags().Bool("relay", false, "run the outbox relay in this process (always on for the memory store)")
	return cmd
}

func runServer(file string, relay bool) error {
	cfg, err := config.LoadConfig(file)
	if err != nil {
		return err
	}
	log := app.NewLogger(cfg.Log)
	if !strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	registry, m := app.NewMetrics()

	store, err := app.OpenStore(cfg, m)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]health.Pinger{"store": store}

	// The memory store's outbox is only visible in this process.
	if relay || strings.EqualFold(cfg.Store.Driver, config.StoreMemory) {
		broker, err := app.OpenBroker(cfg, log, m)
		if err != nil {
			return err
		}
		defer broker.Close()
		if p, ok := broker.(health.Pinger); ok {
			checks["broker"] = p
		}
		startRelay(ctx, cfg, store, broker, log, m)
	}

	svc := encounter.NewService(store, audit.NewService(), m, log)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	routerCfg := router.Config{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Security:       middleware.DefaultSecurityConfig(),
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = &middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		health.NewHandler(checks),
		promhandler.New(registry, m),
		[]router.Handler{
			appointment.NewHandler(svc),
			prescription.NewHandler(svc),
			draft.NewHandler(svc),
			audithandler.NewHandler(svc),
			workflowhandler.NewHandler(),
		},
		routerCfg,
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited properly")
	return nil
}

// startRelay runs the outbox processor and, when configured, the results
// notifier until ctx is done.
func startRelay(ctx context.Context, cfg *config.Config, store *app.Store, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) {
	processor := worker.NewOutboxProcessor(store.Outbox(), broker, cfg.Outbox.ToWorkerConfig(), log, m)
	go processor.Start(ctx)

	if !cfg.Notification.Enabled {
		return
	}
	notifier := notification.NewService(
		email.NewSMTPService(cfg.Notification.ToEmailConfig()),
		cfg.Notification.ResultsRecipients,
		log,
	)
	go func() {
		if err := notifier.Run(ctx, broker); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(err, "Notification subscriber stopped")
		}
	}()
}
