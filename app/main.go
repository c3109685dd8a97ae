package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/oai-harvest/app/api"
	"github.com/lysyi3m/oai-harvest/app/archive"
	"github.com/lysyi3m/oai-harvest/app/cfg"
	"github.com/lysyi3m/oai-harvest/app/database"
	"github.com/lysyi3m/oai-harvest/app/harvest"
	"github.com/lysyi3m/oai-harvest/app/licenses"
	"github.com/lysyi3m/oai-harvest/app/normalize"
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
	"github.com/lysyi3m/oai-harvest/app/tasks"
	"github.com/lysyi3m/oai-harvest/app/vocab"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting OAI Harvest", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	sourceCache := harvest.NewSourceCache(appCfg.SourcesDir, appCfg.MetadataPrefix)
	if err := sourceCache.Run(); err != nil {
		slog.Error("Failed to load sources", "error", err)
		os.Exit(1)
	}
	slog.Info("Sources loaded", "count", sourceCache.GetSourceCount())

	registry, err := loadLicenseRegistry(appCfg.LicensesFile)
	if err != nil {
		slog.Error("Failed to load license registry", "error", err)
		os.Exit(1)
	}
	slog.Info("License registry loaded", "licenses", registry.Count())

	jobRepo := database.NewJobRepository(db)
	objectRepo := database.NewObjectRepository(db)
	datasetRepo := database.NewDatasetRepository(db)

	requestTimeout := time.Duration(appCfg.RequestTimeout) * time.Second
	client := oaipmh.NewClient(appCfg.UserAgent, requestTimeout, appCfg.MaxRetries)
	resolver := vocab.NewResolver(appCfg.VocabDomain, appCfg.UserAgent, requestTimeout, appCfg.MaxRetries)
	normalizer := normalize.NewNormalizer(registry, resolver, appCfg.AttachFileResources)

	store, err := archive.NewStore(appCfg.ArchiveDir)
	if err != nil {
		slog.Error("Failed to initialize archive", "error", err)
		os.Exit(1)
	}

	coordinator := harvest.NewCoordinator(client, jobRepo, objectRepo)
	fetcher := harvest.NewFetcher(client, objectRepo, store)

	scheduler := tasks.NewScheduler(sourceCache, jobRepo, objectRepo, datasetRepo, coordinator, fetcher, normalizer)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	apiHandler := api.NewHandler(sourceCache, jobRepo, objectRepo, datasetRepo, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
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

	slog.Info("Shutdown complete")
}

// loadLicenseRegistry picks the external registry file when one is
// configured, otherwise falls back to the built-in registry.
func loadLicenseRegistry(path string) (*licenses.Registry, error) {
	if path != "" {
		return licenses.NewRegistryFromFile(path)
	}
	return licenses.NewRegistry()
}
