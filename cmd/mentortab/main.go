package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/sync/errgroup"

	"github.com/mentortab/mentortab/internal/authwatch"
	"github.com/mentortab/mentortab/internal/bridge"
	"github.com/mentortab/mentortab/internal/config"
	"github.com/mentortab/mentortab/internal/handlers"
	"github.com/mentortab/mentortab/internal/hint"
	"github.com/mentortab/mentortab/internal/record"
	"github.com/mentortab/mentortab/internal/scrape"
	"github.com/mentortab/mentortab/internal/session"
	"github.com/mentortab/mentortab/internal/store"
)

var version = "dev"

const chromeStartTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("mentortab %s\n", version)
		os.Exit(0)
	}

	if len(os.Args) > 1 && os.Args[1] == "config" {
		config.HandleConfigCommand(cfg)
		os.Exit(0)
	}

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		slog.Error("cannot create state dir", "err", err)
		os.Exit(1)
	}

	st, err := store.Open(filepath.Join(cfg.StateDir, "storage.json"))
	if err != nil {
		slog.Error("cannot open storage", "err", err)
		os.Exit(1)
	}

	log, err := record.Open(filepath.Join(cfg.StateDir, "history.db"))
	if err != nil {
		slog.Error("cannot open history log", "err", err)
		os.Exit(1)
	}
	defer log.Close()

	allocCtx, allocCancel := setupAllocator(cfg)
	defer allocCancel()

	browserCtx, browserCancel, err := startChrome(allocCtx, chromeStartTimeout)
	if err != nil {
		slog.Warn("Chrome startup failed, clearing sessions and retrying once", "err", err)

		allocCancel()
		bridge.ClearChromeSessions(cfg.ProfileDir)
		bridge.MarkCleanExit(cfg.ProfileDir)

		allocCtx, allocCancel = setupAllocator(cfg)
		browserCtx, browserCancel, err = startChrome(allocCtx, chromeStartTimeout)
		if err != nil {
			slog.Error("Chrome failed to start after retry", "err", err, "profile", cfg.ProfileDir)
			allocCancel()
			os.Exit(1)
		}
		slog.Info("Chrome started on retry")
	}
	defer browserCancel()

	b := bridge.New(allocCtx, browserCtx, cfg)
	scrape.Register(b)

	// For CDP_URL mode, the initial target might not exist yet.
	if cfg.CdpURL == "" {
		initTargetID := chromedp.FromContext(browserCtx).Target.TargetID
		b.RegisterTab(string(initTargetID), browserCtx)
		slog.Info("initial tab", "id", string(initTargetID))
	}

	provider, err := hint.NewProvider(cfg.Provider, hint.Settings{
		BaseURL:    cfg.APIBaseURL,
		GenBaseURL: cfg.GeminiAPIURL,
		Model:      cfg.GeminiModel,
		Timeout:    cfg.HintTimeout,
		AuthToken:  st.AuthToken,
		APIKey:     st.GeminiAPIKey,
	})
	if err != nil {
		slog.Error("hint provider", "err", err)
		os.Exit(1)
	}

	sessions := session.NewManager(session.BridgeSource{Bridge: b}, provider, st, log)
	defer sessions.Stop()

	// The dashboard proxy reads go through the backend regardless of which
	// provider generates hints.
	dash := hint.NewBackendClient(hint.Settings{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.HintTimeout,
		AuthToken: st.AuthToken,
	})

	watcher := &authwatch.Watcher{
		Tabs:       b,
		Store:      st,
		Marker:     cfg.CallbackMarker,
		CloseDelay: cfg.CallbackCloseDelay,
		Interval:   cfg.WatchInterval,
	}

	mux := http.NewServeMux()
	h := handlers.New(sessions, cfg, st, b, dash, log)
	h.RegisterRoutes(mux)

	handler := handlers.RequestIDMiddleware(
		handlers.LoggingMiddleware(
			handlers.CorsMiddleware(
				handlers.AuthMiddleware(cfg, mux))))

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("mentortab listening", "port", cfg.Port, "provider", cfg.Provider, "cdp", cfg.CdpURL)
		if cfg.Token != "" {
			slog.Info("auth enabled")
		} else {
			slog.Info("auth disabled (set MENTOR_TOKEN to enable)")
		}
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		watcher.Run(gctx)
		return nil
	})

	g.Go(func() error {
		b.CleanStaleTabs(gctx, 30*time.Second)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "err", err)
		}
		bridge.MarkCleanExit(cfg.ProfileDir)
		browserCancel()
		allocCancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server", "err", err)
		os.Exit(1)
	}
}
