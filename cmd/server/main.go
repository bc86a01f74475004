package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/regoutline/internal/api"
	"github.com/dgallion1/regoutline/internal/config"
	"github.com/dgallion1/regoutline/internal/engine"
	"github.com/dgallion1/regoutline/internal/parser"
	"github.com/dgallion1/regoutline/internal/registry"
	"github.com/dgallion1/regoutline/internal/textnorm"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize registry.
	var remote *registry.Client
	var store *registry.Store
	if cfg.RegistryURL != "" {
		remote = registry.NewClient(cfg.RegistryURL, cfg.RegistryAPIKey)
		store = registry.NewStore(remote)
	} else {
		store = registry.NewStore(nil)
	}
	if cfg.RegistryDir != "" {
		n, err := registry.LoadDir(store, cfg.RegistryDir, parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}, log)
		if err != nil {
			log.Error("load registry", "error", err)
			os.Exit(1)
		}
		log.Info("registry loaded", "dir", cfg.RegistryDir, "documents", n)
	}

	eng := engine.New(textnorm.NewCache(cfg.ViewCacheSize, cfg.ViewCacheTTL), cfg.AskConcurrency)

	// Initialize HTTP server.
	srv := api.NewServer(store, eng, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if remote != nil {
			remote.Close()
		}
	}()

	log.Info("starting regoutline", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
