package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tradingcore/internal/handler/api"
	"tradingcore/internal/usecase"
	pkgch "tradingcore/pkg/clickhouse"
	"tradingcore/pkg/config"
	xhttp "tradingcore/pkg/http"
	applogger "tradingcore/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	engine     *usecase.Engine
	handler    *api.StatusHandler
	httpServer *xhttp.Server
	chClient   *pkgch.Client
	closers    []func() error
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.Engine,
	handler *api.StatusHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		engine:   engine,
		handler:  handler,
		chClient: chClient,
	}
}

// AddCloser registers a resource to close on shutdown.
func (a *App) AddCloser(fn func() error) { a.closers = append(a.closers, fn) }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	a.engine.Start(ctx)
	a.log.Info("engine started",
		applogger.String("symbol", a.cfg.Feed.Symbol),
		applogger.Bool("dry_run", a.cfg.Trading.DryRun))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all loops and closes infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	a.engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}
	a.log.RemoveCollector()

	a.log.Info("shutdown complete")
	return nil
}
