package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/client/backend"
	"github.com/dmitrijs2005/snapgram/internal/client/localdb"
	"github.com/dmitrijs2005/snapgram/internal/client/profiles"
	"github.com/dmitrijs2005/snapgram/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/snapgram/internal/client/sessionstore"
	"github.com/dmitrijs2005/snapgram/internal/client/store"
	"github.com/dmitrijs2005/snapgram/internal/config"
	"github.com/dmitrijs2005/snapgram/internal/logging"
	"github.com/dmitrijs2005/snapgram/internal/notify"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// pingTimeout bounds a single connectivity probe.
const pingTimeout = 3 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	client backend.Client
	store  *store.AuthStore
	reader *bufio.Reader
	out    io.Writer

	closers []io.Closer

	mu       sync.Mutex
	Mode     Mode
	userName string
}

// NewApp opens the state database, builds the store and restores any saved
// session so the prompt starts with the previous user.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.SessionSecret == "" {
		return nil, errors.New("a session secret is required to keep the session on disk")
	}

	db, err := localdb.Open(ctx, c.StatePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	sessions, err := sessionstore.NewSQLiteStore(metadata.NewSQLiteRepository(db), c.SessionSecret)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	client, err := backend.NewHTTPClient(c.BackendURL, c.AnonKey, backend.Options{
		Storage: sessions,
		Logger:  logger,
		Timeout: c.RequestTimeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		config:  c,
		logger:  logger.With("module", "cli"),
		client:  client,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		closers: []io.Closer{client, db},
	}

	var repo profiles.Repository = profiles.NewRESTRepository(client)
	if c.ProfilesDSN != "" {
		pg, err := profiles.OpenPostgres(ctx, c.ProfilesDSN)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, pg)
		repo = profiles.NewPostgresRepository(pg)
	}

	notifier := notify.Multi{notify.NewPrinter(a.out), notify.LogNotifier{Logger: logger}}
	a.store = store.New(client, repo, notifier, store.Options{Logger: logger, TaskTimeout: c.RequestTimeout})

	client.OnAuthStateChange(a.trackUser)
	a.store.Init(ctx)

	if err := client.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "saved session not restored", "error", err)
	}
	return a, nil
}

// trackUser keeps the prompt's user name in step with the backend session.
func (a *App) trackUser(event backend.AuthEvent, s *backend.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch event {
	case backend.EventSignedOut:
		a.userName = ""
	default:
		if s != nil {
			a.userName = s.User.Email
		}
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userName != ""
}

// Run starts the REPL and releases everything once the user leaves.
func (a *App) Run(ctx context.Context) {
	defer a.close()
	a.Root(ctx)
}

func (a *App) close() {
	if a.store != nil {
		a.store.Close()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn(context.Background(), "close", "error", err)
		}
	}
}

// StartOnlineStatusWatcher probes the backend every interval and flips the
// mode between online and offline. It returns when ctx is done. A
// non-positive interval falls back to config.DefaultStatusCheckInterval.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.DefaultStatusCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.client.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
