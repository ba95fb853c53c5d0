package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storelift/migrator/internal/catalog/vtex"
	"github.com/storelift/migrator/internal/config"
	"github.com/storelift/migrator/internal/database"
	"github.com/storelift/migrator/internal/database/records"
	"github.com/storelift/migrator/internal/database/runs"
	http_controllers "github.com/storelift/migrator/internal/http"
	"github.com/storelift/migrator/internal/migration"
	"github.com/storelift/migrator/internal/orchestrator"
	"github.com/storelift/migrator/internal/scheduler"
	"github.com/storelift/migrator/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown requested, waiting up to %v", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop the scanner and task queue before the HTTP server so no new
	// import work starts mid-shutdown.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the whole service together and serves it.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting catalog migrator v%s", version)

	if cfg.Target.Endpoint == "" {
		log.Printf("WARNING: target endpoint is not set. Set 'TARGET_ENDPOINT' before dispatching imports.")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	runRepo := runs.NewRepository(db.DB)
	recordRepo := records.NewRepository(db.DB)

	sources := vtex.NewSourceFactory(cfg.Source.Endpoint, cfg.Source.Account, cfg.Source.Token, cfg.Migration.PageSize)
	target := vtex.NewTarget(cfg.Target.Endpoint, cfg.Target.Account, cfg.Target.Token, cfg.Migration.PageSize)

	pipeline := migration.NewPipeline(runRepo, recordRepo, sources, target, migration.Options{
		Concurrency: cfg.Migration.BatchConcurrency,
		StepDelay:   cfg.Migration.StepDelay,
	})
	orch := orchestrator.New(runRepo, pipeline, cfg.Migration.StepDelay)

	// Imports run on the background queue when enabled, so dispatch
	// requests return immediately.
	var dispatcher scheduler.Dispatcher = orch
	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, cfg.Tasks)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		taskClient.Register(tasks.NewRunImportQueue(orch))

		taskCtx, taskCancel := context.WithCancel(context.Background())
		defer taskCancel()
		go taskClient.Start(taskCtx)

		dispatcher = tasks.NewEnqueuer(taskClient)
	}

	var scanner *scheduler.RecoveryScanner
	if cfg.Scanner.Enabled {
		scanner = scheduler.NewRecoveryScanner(runRepo, recordRepo, target, dispatcher, cfg.Scanner.Schedule)
		if err := scanner.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start recovery scanner: %v", err)
		}
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		DB:         db,
		Runs:       runRepo,
		Records:    recordRepo,
		Dispatcher: dispatcher,
		Version:    version,
	})

	Serve(router, cfg, func(ctx context.Context) {
		if scanner != nil {
			scanner.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskClient.Close()
		}
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	})
}
