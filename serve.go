package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"showcase/internal/catalog"
	"showcase/internal/featureflags"
	mw "showcase/internal/http/middleware"
	"showcase/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog pages and JSON API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	// 1) Feature flags (non-fatal)
	flagsCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	flagsErr := featureflags.Init(flagsCtx, cfg.Flags.APIKey)
	cancel()
	if flagsErr != nil {
		logger.Warnf("feature flags init warning: %v", flagsErr)
	} else {
		logger.Infof("feature flags ready: offline=%v, logLevel=%s",
			featureflags.Values().Offline.IsEnabled(nil),
			featureflags.Values().LogLevel.GetValue(nil))
		if lvl, ok := flagLogLevel(logLevel, featureflags.Values().LogLevel.GetValue(nil)); ok {
			logger.SetLevel(lvl)
			logger.Infof("log level set to %s by feature flag", logger.GetLevel())
		}
		if logLevel == "" {
			go watchLogLevel(ctx)
		}
	}
	defer featureflags.Shutdown()

	// 2) Catalog
	ctrl := newController()
	defer ctrl.Close()
	render := newRenderer(func() bool {
		return featureflags.Values().PromoPriceAuthoritative.IsEnabled(nil)
	})
	catalogHandler, err := catalog.NewHandler(ctrl, render)
	if err != nil {
		return err
	}

	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, 2*cfg.APITimeout())
		defer cancel()
		if err := ctrl.Load(loadCtx); err != nil {
			logger.Errorf("initial load: %v", err)
		}
	}()

	if cfg.Catalog.Refresh != "" {
		sched, err := ctrl.ScheduleRefresh(cfg.Catalog.Refresh, 2*cfg.APITimeout())
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		logger.Infof("catalog refresh scheduled: %s", cfg.Catalog.Refresh)
	}

	// 3) Router
	r := newRouter(catalogHandler)

	s := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("showcase listening on %s", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Infof("shutdown signal received")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return s.Shutdown(shutdownCtx)
}

func newRouter(h *catalog.Handler) *mux.Router {
	r := mux.NewRouter()

	// Offline kill-switch
	r.Use(offlineGate)
	// Request logger (skip noisy health endpoints)
	r.Use(mw.LogRequests(mw.WithSkips("/health", "/ready")))

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)

	// Inspect current flag values
	r.HandleFunc("/_flags", func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]interface{}{
			"offline":                 featureflags.Values().Offline.IsEnabled(nil),
			"logLevel":                featureflags.Values().LogLevel.GetValue(nil),
			"promoPriceAuthoritative": featureflags.Values().PromoPriceAuthoritative.IsEnabled(nil),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}).Methods(http.MethodGet)

	// Pages
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", h.Detail).Methods(http.MethodGet)

	// JSON API
	r.HandleFunc("/api/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products/{id}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/api/status", h.Status).Methods(http.MethodGet)
	r.HandleFunc("/api/reload", h.Reload).Methods(http.MethodPost)

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.Server.StaticDir))))
	return r
}

func offlineGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// always allow health checks
		if r.URL.Path == "/health" || r.URL.Path == "/ready" {
			next.ServeHTTP(w, r)
			return
		}
		if featureflags.Values().Offline.IsEnabled(nil) {
			http.Error(w, "service temporarily offline", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// flagLogLevel returns the level the LogLevel flag imposes at start-up.
// An explicit --log-level wins, and a flag still at its default leaves the
// configured level alone.
func flagLogLevel(cliLevel, flagLevel string) (string, bool) {
	if cliLevel != "" || flagLevel == "" || flagLevel == featureflags.DefaultLogLevel {
		return "", false
	}
	return flagLevel, true
}

// watchLogLevel follows the LogLevel flag until ctx ends.
func watchLogLevel(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	prev := featureflags.Values().LogLevel.GetValue(nil)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cur := featureflags.Values().LogLevel.GetValue(nil)
		if cur != prev {
			logger.SetLevel(cur)
			logger.Infof("log level changed to %s", logger.GetLevel())
			prev = cur
		}
	}
}
