// Package web serves the snapgram pages over HTTP. Every browser gets its
// own session context (a store, a backend session and a toast channel)
// keyed by a cookie; pages are resolved through the route table.
package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/client/backend"
	"github.com/dmitrijs2005/snapgram/internal/client/profiles"
	"github.com/dmitrijs2005/snapgram/internal/client/store"
	"github.com/dmitrijs2005/snapgram/internal/config"
	"github.com/dmitrijs2005/snapgram/internal/logging"
	"github.com/dmitrijs2005/snapgram/internal/notify"
	"github.com/dmitrijs2005/snapgram/internal/web/routes"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	routes   *routes.Table
	sessions *Registry
	ws       *notify.WSServer
	health   *HealthServer
	probe    *backend.HTTPClient
	db       *sql.DB
}

// NewApp wires the application. With cfg.ProfilesDSN set, profile rows go
// straight to Postgres instead of through the row API.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: cfg, logger: logger.With("module", "web")}

	tbl, err := routes.New(routes.Application(app.loader))
	if err != nil {
		return nil, fmt.Errorf("route table: %w", err)
	}
	app.routes = tbl

	probe, err := backend.NewHTTPClient(cfg.BackendURL, cfg.AnonKey, backend.Options{
		Logger:  logger,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	app.probe = probe

	if cfg.ProfilesDSN != "" {
		db, err := profiles.OpenPostgres(ctx, cfg.ProfilesDSN)
		if err != nil {
			return nil, err
		}
		app.db = db
	}

	app.sessions = NewRegistry(app.newSession, defaultIdleTimeout, logger)
	app.ws = notify.NewWSServer(logger, app.checkOrigin)
	app.health = NewHealthServer(cfg.HealthAddr, probe, cfg.StatusCheckInterval, logger)
	return app, nil
}

// newSession builds one browser's context. Tokens live only in that
// session's backend client.
func (app *App) newSession(ctx context.Context, id string) (*Session, error) {
	log := app.logger.With("session_id", id)

	client, err := backend.NewHTTPClient(app.config.BackendURL, app.config.AnonKey, backend.Options{
		Logger:  log,
		Timeout: app.config.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	var repo profiles.Repository = profiles.NewRESTRepository(client)
	if app.db != nil {
		repo = profiles.NewPostgresRepository(app.db)
	}

	hub := notify.NewHub()
	st := store.New(client, repo, notify.Multi{hub, notify.LogNotifier{Logger: log}}, store.Options{
		Logger:      log,
		TaskTimeout: app.config.RequestTimeout,
	})
	st.Init(ctx)

	return &Session{ID: id, Store: st, Toasts: hub, closer: client}, nil
}

func (app *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range app.config.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	scheme := "http://"
	if r.TLS != nil {
		scheme = "https://"
	}
	return origin == scheme+r.Host
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP and gRPC health until ctx is canceled or a signal
// arrives, then shuts everything down and closes every session.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	listen, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return err
	}
	return app.serve(ctx, listen)
}

func (app *App) serve(ctx context.Context, listen net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	app.logger.Info(ctx, "Starting web server", "address", listen.Addr().String())

	g.Go(func() error {
		if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info(gctx, "Stopping web server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return app.health.Run(gctx) })
	g.Go(func() error { return app.health.Watch(gctx) })
	g.Go(func() error {
		app.sessions.Run(gctx, defaultSweepEvery)
		return nil
	})

	err := g.Wait()
	if cerr := app.Close(); cerr != nil {
		app.logger.Error(ctx, "shutdown", "error", cerr)
	}
	return err
}

// Close ends every session and releases shared resources.
func (app *App) Close() error {
	errs := []error{app.sessions.CloseAll(), app.probe.Close()}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}
