package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doctrack/internal/config"
	"doctrack/internal/handler"
	"doctrack/internal/metrics"
	"doctrack/internal/port"
	"doctrack/internal/repository/memory"
	mongostore "doctrack/internal/repository/mongo"
	"doctrack/internal/repository/postgres"
	"doctrack/internal/router"
	"doctrack/internal/service"
	"doctrack/internal/storage/s3"
	"doctrack/internal/tracker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("DOCTRACK_CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, afterRegister, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("server: closing store: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reporter := metrics.NewHistoryMetrics(reg)

	historyNames, err := registerTracking(store, cfg.Tracking, reporter)
	if err != nil {
		return fmt.Errorf("failed to register change tracking: %w", err)
	}
	if afterRegister != nil {
		if err := afterRegister(ctx); err != nil {
			return err
		}
	}

	docSvc := service.NewDocumentService(store, historyNames)
	var authSvc service.AuthService
	if cfg.JWT.Enabled() {
		authSvc = service.NewAuthService(cfg.JWT)
	} else {
		log.Printf("server: jwt.secret is empty, API authentication disabled")
	}

	var archive port.ObjectStorage
	if cfg.Archive.Enabled() {
		archive, err = s3.NewS3Client(ctx, &cfg.Archive)
		if err != nil {
			return fmt.Errorf("failed to create archive storage: %w", err)
		}
	}
	exportSvc := service.NewExportService(docSvc, archive, cfg.Archive)

	docH := handler.NewDocumentHandler(docSvc)
	exportH := handler.NewExportHandler(exportSvc)
	healthH := handler.NewHealthHandler(store)

	r := router.Setup(authSvc, cfg.CORS.AllowedOrigins, docH, exportH, healthH,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s (store: %s)", cfg.Server.Port, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Println("Server exited")
	return nil
}

// openStore connects the configured backend. The returned hook, when set,
// must run once every document type is registered.
func openStore(ctx context.Context, cfg *config.Config) (port.DocumentStore, func(context.Context) error, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.NewDocumentStore(db), nil, nil
	case config.DriverMongo:
		store, err := mongostore.Connect(ctx, &cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		return store, store.EnsureIndexes, nil
	default:
		return memory.NewStore(), nil, nil
	}
}

// registerTracking installs a history recorder for every configured
// document type and returns each type's history attribute.
func registerTracking(store port.HookRegistry, cfg config.TrackingConfig, reporter tracker.Reporter) (map[string]string, error) {
	names := make(map[string]string, len(cfg.Types))
	for _, t := range cfg.Types {
		opts := []tracker.ConfigOption{
			tracker.WithName(t.HistoryName()),
			tracker.WithFieldsToTrack(t.FieldsToTrack...),
		}
		if t.Limit != nil {
			opts = append(opts, tracker.WithLimit(*t.Limit))
		}
		trackCfg, err := tracker.NewConfig(opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Type, err)
		}

		rec, err := tracker.Register(store, t.Type, trackCfg,
			tracker.WithReporter(reporter),
			tracker.WithMaxAttempts(cfg.MaxAttempts),
		)
		if err != nil {
			return nil, err
		}
		names[rec.DocType()] = rec.Config().Name()
		log.Printf("server: tracking %v on %s (history %q, limit %d)",
			rec.Config().TrackedFields(), rec.DocType(), rec.Config().Name(), rec.Config().Limit())
	}
	return names, nil
}
