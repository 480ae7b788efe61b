package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/api"
	"github.com/soaringjerry/Huddle/internal/config"
	"github.com/soaringjerry/Huddle/internal/db"
	"github.com/soaringjerry/Huddle/internal/services"
)

// openStore builds the configured session repository. For SQL stores it
// applies pending migrations before returning; close releases the pool.
func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (services.SessionRepository, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Info("using in-memory session store")
		return api.NewMemoryStore(), func() {}, nil
	}
	dialect, err := db.ParseDialect(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(dialect, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			log.WithError(err).Warn("close database")
		}
	}
	if err := db.RunMigrations(ctx, conn, dialect, cfg.MigrationsDir); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	store, err := db.NewSQLStore(conn, dialect, log)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	log.WithField("dialect", dialect).Info("using SQL session store")
	return store, closeFn, nil
}
