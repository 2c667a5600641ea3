package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/encounter-api/internal/app"
	"github.com/jwalitptl/encounter-api/internal/config"
	"github.com/jwalitptl/encounter-api/internal/email"
	"github.com/jwalitptl/encounter-api/internal/handler/health"
	promhandler "github.com/jwalitptl/encounter-api/internal/handler/prometheus"
	"github.com/jwalitptl/encounter-api/internal/service/notification"
	"github.com/jwalitptl/encounter-api/pkg/logger"
	"github.com/jwalitptl/encounter-api/pkg/worker"
)

func main() {
	cmd := &cobra.Command{
		Use:          "encounter-worker",
		Short:        "Relay outbox events to the broker and send result notifications",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("config")
			addr, _ := cmd.Flags().GetString("health-addr")
			return run(file, addr)
		},
	}
	cmd.Flags().StringP("config", "c", "", "path to config.yml")
	cmd.Flags().String("health-addr", ":8081", "address for health and metrics endpoints")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(file, addr string) error {
	cfg, err := config.LoadConfig(file)
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.StorePostgres {
		return fmt.Errorf("the worker needs the postgres store; run the api with --relay for %q", cfg.Store.Driver)
	}
	log := app.NewLogger(cfg.Log)
	gin.SetMode(gin.ReleaseMode)

	registry, m := app.NewMetrics()

	store, err := app.OpenStore(cfg, m)
	if err != nil {
		return err
	}
	defer store.Close()

	broker, err := app.OpenBroker(cfg, log, m)
	if err != nil {
		return err
	}
	defer broker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]health.Pinger{"store": store}
	if p, ok := broker.(health.Pinger); ok {
		checks["broker"] = p
	}
	srv := healthServer(addr, checks, promhandler.New(registry, m), log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if cfg.Notification.Enabled {
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

	processor := worker.NewOutboxProcessor(store.Outbox(), broker, cfg.Outbox.ToWorkerConfig(), log, m)
	processor.Start(ctx)
	return nil
}

func healthServer(addr string, checks map[string]health.Pinger, metrics *promhandler.Handler, log *logger.Logger) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(checks).RegisterRoutes(engine)
	engine.GET("/metrics", metrics.Handler())

	srv := &http.Server{Addr: addr, Handler: engine}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Health server failed")
		}
	}()
	return srv
}
