package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketsync/internal/export"
	"marketsync/internal/handlers"
	"marketsync/internal/logger"
	"marketsync/internal/marketplace"
	"marketsync/internal/models"
	"marketsync/internal/repository"
	"marketsync/internal/repository/db"
	"marketsync/internal/scheduler"
	"marketsync/internal/server"
	"marketsync/internal/service"
	"marketsync/internal/workflow"

	"github.com/spf13/viper"
)

func main() {
	// load config.yml first so the log level is configurable
	if err := loadConfig(); err != nil {
		panic("error reading config: " + err.Error())
	}

	log := logger.New(viper.GetString("log.level"))

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)

	mp := marketplace.NewHTTPClient(marketplace.Config{
		AppKey:      viper.GetString("marketplace.app_key"),
		AppSecret:   viper.GetString("marketplace.app_secret"),
		AccessToken: viper.GetString("marketplace.access_token"),
		Endpoint:    viper.GetString("marketplace.endpoint"),
	}, log.Named("marketplace"))

	exporter := export.NewXMLExporter(exportDir())

	registry := workflow.NewRegistry(
		workflow.OrderSyncWorkflow(),
		workflow.InventorySyncWorkflow(),
	)

	runner := scheduler.NewJobRunner(registry, scheduler.Collaborators{
		DB:          sqlDB,
		Marketplace: mp,
		Exporter:    exporter,
		Erp:         repos.Erp,
		Logs:        repos.Logs,
	}, log)

	sched := scheduler.New(runner, repos.JobConfig, log.Named("scheduler"))
	if err := seedJobs(sched, log); err != nil {
		log.Fatalw("failed to register jobs", "err", err)
	}

	services := service.NewService(repos, sched, service.AuthConfig{
		SigningKey: viper.GetString("auth.signing_key"),
		TokenTTL:   viper.GetDuration("auth.token_ttl"),
	})
	apiHandler := handlers.NewHandler(services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(sched, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		dbPath = "app.db"
	}
	return db.InitDB(dbPath)
}

func exportDir() string {
	dir := viper.GetString("export.dir")
	if dir == "" {
		dir = "export"
	}
	return dir
}

// seedJobs restores the persisted job list, or registers the configured
// defaults on first start.
func seedJobs(sched *scheduler.Scheduler, log *logger.Logger) error {
	if err := sched.LoadPersisted(context.Background()); err != nil {
		return err
	}
	if len(sched.List()) > 0 {
		return nil
	}

	var seeds []struct {
		Type            string `mapstructure:"type"`
		IntervalMinutes int    `mapstructure:"interval_minutes"`
		Description     string `mapstructure:"description"`
		Enabled         bool   `mapstructure:"enabled"`
	}
	if err := viper.UnmarshalKey("jobs", &seeds); err != nil {
		return err
	}
	for _, s := range seeds {
		interval := time.Duration(s.IntervalMinutes) * time.Minute
		id, err := sched.AddJob(models.JobType(s.Type), interval, s.Description, s.Enabled)
		if err != nil {
			return err
		}
		log.Infow("seeded job", "job_id", id)
	}
	return nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(sched *scheduler.Scheduler, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop timers and wait for in-flight runs
	sched.Stop()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
