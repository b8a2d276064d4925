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

	"github.com/lysyi3m/landing-comb/app/api"
	"github.com/lysyi3m/landing-comb/app/catalog"
	"github.com/lysyi3m/landing-comb/app/cfg"
	"github.com/lysyi3m/landing-comb/app/cms"
	"github.com/lysyi3m/landing-comb/app/database"
	"github.com/lysyi3m/landing-comb/app/feed"
	"github.com/lysyi3m/landing-comb/app/landing"
	"github.com/lysyi3m/landing-comb/app/notify"
	"github.com/lysyi3m/landing-comb/app/pipeline"
	"github.com/lysyi3m/landing-comb/app/postcache"
	"github.com/lysyi3m/landing-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Landing Comb", "version", appCfg.Version, "port", appCfg.Port)

	taxonomy, err := catalog.Load(appCfg.CatalogFile)
	if err != nil {
		slog.Error("Failed to load catalog", "file", appCfg.CatalogFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Catalog loaded", "feeds", len(taxonomy.Feeds()), "categories", len(taxonomy.Categories()), "topics", len(taxonomy.Topics()))

	if dir := filepath.Dir(appCfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create database directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	docRepo := database.NewDocumentRepository(db)

	cache, closeCache, err := openPostCache(appCfg, db)
	if err != nil {
		slog.Error("Failed to open post cache", "backend", appCfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	defer closeCache()

	httpClient := &http.Client{Timeout: appCfg.FeedTimeout}

	var sender notify.Sender = notify.LogSender{}
	if appCfg.NotifyURL != "" {
		sender = notify.NewHTTPSender(appCfg.NotifyURL, appCfg.NotifyToken, appCfg.UserAgent, appCfg.NotifyRate, nil)
	} else {
		slog.Warn("NOTIFY_URL not set, notifications will only be logged")
	}
	dispatcher := notify.NewDispatcher(sender, notify.Options{
		Attempts:   notify.DefaultAttempts,
		RetryDelay: notify.DefaultRetryDelay,
		PingTopic:  appCfg.PingTopic,
		PingDelay:  appCfg.PingDelay,
	})
	defer dispatcher.Stop()

	refresher := feed.NewRefresher(
		feed.NewFetcher(httpClient, appCfg.UserAgent, appCfg.FeedTimeout),
		docRepo,
		feed.RefresherOptions{
			Workers:    appCfg.WorkerCount,
			Attempts:   appCfg.FetchAttempts,
			RetryDelay: appCfg.RetryDelay,
		})

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Posts:     cms.NewClient(appCfg.CMSEndpoint, appCfg.CMSPageSize, appCfg.UserAgent, appCfg.FeedTimeout, httpClient),
		Cache:     cache,
		Catalog:   taxonomy,
		Router:    notify.NewRouter(taxonomy.Topics()),
		Notifier:  dispatcher,
		Refresher: refresher,
		Assembler: landing.NewAssembler(docRepo, docRepo, taxonomy, landing.DefaultOptions()),
	}, pipeline.Options{Cooldown: appCfg.Cooldown})
	defer orchestrator.Stop()

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "poll_interval", appCfg.PollInterval.String())
	scheduler := tasks.NewScheduler(orchestrator, tasks.SchedulerOptions{
		WorkerCount:      appCfg.WorkerCount,
		PollInterval:     appCfg.PollInterval,
		RefreshOnStartup: appCfg.RefreshOnStartup,
	})
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(docRepo, orchestrator, dispatcher, scheduler, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler, orchestrator, dispatcher and database are closed via defer
	slog.Info("Shutdown complete")
}

func openPostCache(appCfg *cfg.Cfg, db *database.DB) (postcache.Store, func(), error) {
	switch appCfg.CacheBackend {
	case "file":
		slog.Info("Using file post cache", "path", appCfg.PostCacheFile)
		return postcache.NewFileStore(appCfg.PostCacheFile), func() {}, nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err := postcache.NewRedisStore(ctx, appCfg.RedisAddr, appCfg.RedisKey)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Using redis post cache", "addr", appCfg.RedisAddr, "key", appCfg.RedisKey)
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close redis client", "error", err)
			}
		}, nil
	default:
		slog.Info("Using database post cache")
		return database.NewPostCacheRepository(db), func() {}, nil
	}
}
