package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/persona-service/internal/config"
	"gitlab.com/dirk.krummacker/persona-service/internal/httpapi"
	"gitlab.com/dirk.krummacker/persona-service/internal/logging"
	"gitlab.com/dirk.krummacker/persona-service/internal/metrics"
	"gitlab.com/dirk.krummacker/persona-service/internal/migrations"
	"gitlab.com/dirk.krummacker/persona-service/internal/service"
	"gitlab.com/dirk.krummacker/persona-service/internal/store"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 API_TOKEN=s3cr3t GIN_MODE=release GIN_LOGGING=OFF go run main.go
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load configuration:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	personaStore, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	svc := service.New(personaStore, logger, m, nil)
	gin.SetMode(cfg.GinMode)
	router := httpapi.SetupHttpRouter(svc, httpapi.Options{
		APIToken:       cfg.APIToken,
		CORSOrigins:    cfg.CORSOrigins,
		RequestLogging: cfg.GinLogging,
		Logger:         logger,
		Metrics:        m,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr), zap.String("dbdriver", cfg.DBDriver))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore connects to the configured database, applying the migrations first if requested.
// The returned function releases the connection.
func openStore(cfg config.Config, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		logger.Warn("using the in-memory store, all data is lost on exit")
		return store.NewMemoryStore(), func() {}, nil
	}

	if cfg.MigrateOnStart {
		runner, err := migrations.New(cfg.DBDriver, cfg.MigrationURL(), logger)
		if err != nil {
			return nil, nil, err
		}
		err = runner.Up()
		runner.Close()
		if err != nil {
			return nil, nil, err
		}
	}

	sqlStore, err := store.OpenSQL(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	return sqlStore, func() {
		if err := sqlStore.Close(); err != nil {
			logger.Warn("could not close database", zap.Error(err))
		}
	}, nil
}
