// Package app wires the session store, backend gateway and request
// dispatcher into one context object that every surface (TUI and CLI)
// receives at startup.
package app

import (
	"context"
	"log/slog"

	"github.com/noahxzhu/tiffin-client/internal/config"
	"github.com/noahxzhu/tiffin-client/internal/storage"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
	"github.com/noahxzhu/tiffin-client/internal/worker"
)

type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Session    *storage.Store
	Gateway    *tiffin.Client
	Dispatcher *worker.Dispatcher
}

// New loads the session from disk and builds the gateway and dispatcher.
// The dispatcher has no poster yet; the TUI installs one.
func New(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	session := storage.Open(cfg.Storage.FilePath, logger.With("component", "storage"))
	gateway := tiffin.NewClient(cfg.API.BaseURL, session,
		tiffin.WithTimeout(cfg.API.Timeout),
		tiffin.WithLogger(logger.With("component", "gateway")),
	)
	return &App{
		Config:     cfg,
		Logger:     logger,
		Session:    session,
		Gateway:    gateway,
		Dispatcher: worker.NewDispatcher(cfg.Worker.MaxInFlight, nil, logger.With("component", "worker")),
	}
}

// Go runs op on the dispatcher under key. It is the only way UI code starts
// a backend call.
func (a *App) Go(ctx context.Context, key string, op worker.Op) worker.Ticket {
	return a.Dispatcher.Dispatch(ctx, key, op)
}

// Close waits for outstanding requests so their completions are not lost.
func (a *App) Close() {
	a.Dispatcher.Wait()
}

var notLoggedIn = tiffin.Failed(tiffin.KindDomain, "Not logged in")

// userID returns the session's user id, or a failure when nobody is signed
// in.
func (a *App) userID() (string, tiffin.Result, bool) {
	if !a.Session.IsLoggedIn() {
		return "", notLoggedIn, false
	}
	return a.Session.UserID(), tiffin.Result{}, true
}
