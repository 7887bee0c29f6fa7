package main

import (
	"flag"
	"fmt"
	"os"

	"gitlab.com/dirk.krummacker/persona-service/internal/config"
	"gitlab.com/dirk.krummacker/persona-service/internal/logging"
	"gitlab.com/dirk.krummacker/persona-service/internal/migrations"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > DBDRIVER=postgres DBHOST=localhost:5432 DBUSER=dirk DBPWD=bullo92 go run main.go -direction=up
func main() {
	direction := flag.String("direction", "up", "up applies all migrations, down reverts them")
	flag.Parse()

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

	if err := migrate(cfg, *direction, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
}

func migrate(cfg config.Config, direction string, logger *zap.Logger) error {
	runner, err := migrations.New(cfg.DBDriver, cfg.MigrationURL(), logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	switch direction {
	case "up":
		err = runner.Up()
	case "down":
		err = runner.Down()
	default:
		err = fmt.Errorf("unknown direction %q", direction)
	}
	if err != nil {
		return err
	}
	version, dirty, err := runner.Version()
	if err != nil {
		return fmt.Errorf("could not read schema version: %w", err)
	}
	logger.Info("migration finished",
		zap.String("direction", direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}
