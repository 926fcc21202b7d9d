package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/subscription-billing/api"
	"github.com/frahmantamala/subscription-billing/internal/confirmation"
	"github.com/frahmantamala/subscription-billing/internal/transport/rest"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, lg, err := bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if _, err := api.Load(context.Background()); err != nil {
		lg.Error("invalid openapi document", "error", err)
		os.Exit(1)
	}

	app, err := newApplication(cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	handlers := rest.Handlers{
		Health: rest.NewHealthHandler(map[string]rest.Checker{
			"postgres": app.SQL.PingContext,
		}),
		Confirmation: confirmation.NewHandler(app.Orchestrator, app.Status, cfg.Billing.ExposeErrorDetails),
	}
	routerCfg := rest.RouterConfig{AllowedOrigins: cfg.Server.AllowedOrigins}
	if cfg.Observability.Metrics.Enabled {
		handlers.Metrics = promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})
		routerCfg.MetricsPath = cfg.Observability.Metrics.Path
	}
	rest.RegisterAllRoutes(router, handlers, routerCfg, lg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lg.Info("starting http server", "address", addr, "environment", cfg.Billing.Environment)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("received signal, shutting down", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server failed", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		lg.Error("server shutdown error", "error", err)
	}
	app.Close(ctx)

	lg.Info("server stopped")
}
