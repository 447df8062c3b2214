package server

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/guidify/internal/common"
	repo "github.com/joseph-ayodele/guidify/internal/repository"
)

// DBConfig maps the loaded database settings onto the repository config.
func DBConfig(c common.DatabaseConfig) repo.Config {
	return repo.Config{
		Driver:           c.Driver,
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime.Duration,
		MaxConnIdleTime:  c.MaxConnIdleTime.Duration,
		DialTimeout:      c.DialTimeout.Duration,
		StatementTimeout: c.StatementTimeout.Duration,
	}
}

// ConnectDB applies migrations when configured to, then opens the database.
func ConnectDB(ctx context.Context, c common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	cfg := DBConfig(c)

	if c.AutoMigrate {
		logger.Info("running database migrations", "driver", cfg.Driver)
		if err := repo.Migrate(cfg, logger); err != nil {
			logger.Error("failed to migrate database", "error", err)
			return nil, err
		}
	}

	logger.Info("connecting to database", "driver", cfg.Driver)
	db, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return db, nil
}
