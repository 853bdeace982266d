package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nhle/gtdxp-os/internal/app"
	"github.com/nhle/gtdxp-os/internal/callback"
	"github.com/nhle/gtdxp-os/internal/keys"
	"github.com/nhle/gtdxp-os/internal/model"
	"github.com/nhle/gtdxp-os/internal/session"
	"github.com/nhle/gtdxp-os/internal/store"
	"github.com/nhle/gtdxp-os/internal/toast"
	"github.com/nhle/gtdxp-os/internal/ui"
)

var errNoTerminal = errors.New("gtdxp needs an interactive terminal; see `gtdxp --help` for scriptable commands")

var isTerminal = func(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runTUI(cmd *cobra.Command, ctx *commandContext, link string) error {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return errNoTerminal
	}

	var startLink *callback.Received
	if link != "" {
		r, err := callback.FromLink(link)
		if err != nil {
			return fmt.Errorf("parse --link: %w", err)
		}
		startLink = &r
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	mgr, err := ctx.sessionManager()
	if err != nil {
		return err
	}

	queue := toast.New(
		toast.WithDefaultDuration(time.Duration(cfg.Toast.DurationMS)*time.Millisecond),
		toast.WithLogger(logger.Logger),
	)
	defer queue.Clear()

	var prefs store.Store
	if st, err := ctx.ensureStore(); err != nil {
		logger.Warn("toast history disabled", "error", err)
	} else {
		prefs = st
		recorder := store.NewRecorder(st, queue, logger.Logger)
		defer recorder.Close()
		applyPreferences(cmd.Context(), st, cfg, logger.Logger)
	}

	start := ui.ScreenLanding
	restoreCtx, cancel := context.WithTimeout(cmd.Context(), ui.RequestTimeout)
	if _, err := mgr.Restore(restoreCtx); err == nil {
		start = ui.ScreenSystem
	} else if !errors.Is(err, session.ErrNotSignedIn) {
		logger.Warn("restoring session", "error", err)
		queue.Warning("Could not restore your session", "Please sign in again.")
	}
	cancel()

	if !cfg.AuthConfigured() {
		queue.Warning("Authentication is not configured", "Set auth.url and the anon key, then restart.")
	}

	runCtx, stop := context.WithCancel(cmd.Context())
	defer stop()

	server := callback.NewServer(cfg.Auth.CallbackAddr, logger.Logger)
	if err := server.Start(runCtx); err != nil {
		logger.Warn("email links will not be received", "error", err)
		server = nil
	} else {
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("stopping callback listener", "error", err)
			}
		}()
	}

	watcher := session.NewWatcher(mgr, time.Duration(cfg.Auth.SessionCheckSec)*time.Second)
	defer watcher.Stop()

	env := &ui.Env{
		Config:     cfg,
		ConfigPath: ctx.configPath,
		Session:    mgr,
		Toasts:     queue,
		Store:      prefs,
		Keys:       keys.DefaultKeyMap(),
		Logger:     logger.Logger,
	}

	m := app.New(app.Options{
		Env:       env,
		Callbacks: server,
		Watcher:   watcher,
		Link:      startLink,
		Start:     start,
	})

	logger.Info("starting ui", "screen", start.String(), "config", ctx.configPath)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(runCtx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// applyPreferences overrides the configured look with the last one the
// user applied.
func applyPreferences(ctx context.Context, s store.Store, cfg *model.AppConfig, logger *slog.Logger) {
	if v, err := s.GetPreference(ctx, store.PrefTheme); err == nil {
		cfg.Display.Theme = v
	} else if !errors.Is(err, store.ErrNotFound) {
		logger.Warn("reading theme preference", "error", err)
	}
	if v, err := s.GetPreference(ctx, store.PrefLight); err == nil {
		cfg.Display.Light = v == "true"
	}
}
