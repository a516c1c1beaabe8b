package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	badgerdb "github.com/amalgam-labs/amalgamd/internal/infrastructure/db/badger"
	pgdb "github.com/amalgam-labs/amalgamd/internal/infrastructure/db/postgres"
	sqlitedb "github.com/amalgam-labs/amalgamd/internal/infrastructure/db/sqlite"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/migration/*
var migrations embed.FS

//go:embed postgres/migration/*
var pgMigration embed.FS

var (
	stateStoreTypes = map[string]func(...interface{}) (domain.StateRepository, error){
		"badger":   badgerdb.NewStateRepository,
		"sqlite":   sqlitedb.NewStateRepository,
		"postgres": pgdb.NewStateRepository,
	}
	componentStoreTypes = map[string]func(...interface{}) (domain.ComponentRepository, error){
		"badger":   badgerdb.NewComponentRepository,
		"sqlite":   sqlitedb.NewComponentRepository,
		"postgres": pgdb.NewComponentRepository,
	}
	taxStoreTypes = map[string]func(...interface{}) (domain.TaxRepository, error){
		"badger":   badgerdb.NewTaxRepository,
		"sqlite":   sqlitedb.NewTaxRepository,
		"postgres": pgdb.NewTaxRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	stateStore     domain.StateRepository
	componentStore domain.ComponentRepository
	taxStore       domain.TaxRepository

	runInTx func(ctx context.Context, fn func(ctx context.Context) error) error
	close   func() error
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	stateStoreFactory, ok := stateStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	componentStoreFactory, ok := componentStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	taxStoreFactory, ok := taxStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	svc := &service{}
	var storeConfig []interface{}

	switch config.DataStoreType {
	case "badger":
		store, err := badgerdb.OpenStore(config.DataStoreConfig...)
		if err != nil {
			return nil, err
		}
		storeConfig = []interface{}{store}
		svc.runInTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return badgerdb.RunInTx(ctx, store, fn)
		}
		svc.close = store.Close

	case "postgres":
		if len(config.DataStoreConfig) != 2 {
			return nil, fmt.Errorf("invalid data store config for postgres")
		}

		dsn, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid DSN for postgres")
		}

		autoCreate, ok := config.DataStoreConfig[1].(bool)
		if !ok {
			return nil, fmt.Errorf("invalid autocreate flag for postgres")
		}

		db, err := pgdb.OpenDb(dsn, autoCreate)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres db: %s", err)
		}

		pgDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres migration driver: %s", err)
		}

		source, err := iofs.New(pgMigration, "postgres/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed postgres migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "postgres", pgDriver)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run postgres migrations: %s", err)
		}

		storeConfig = []interface{}{db}
		svc.runInTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return pgdb.RunInTx(ctx, db, fn)
		}
		svc.close = db.Close

	case "sqlite":
		if len(config.DataStoreConfig) != 1 {
			return nil, fmt.Errorf("invalid data store config")
		}

		baseDir, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}

		dbFile := filepath.Join(baseDir, sqliteDbFile)
		db, err := sqlitedb.OpenDb(dbFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %s", err)
		}

		if err := migrateSqlite(db); err != nil {
			return nil, err
		}

		storeConfig = []interface{}{db}
		svc.runInTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return sqlitedb.RunInTx(ctx, db, fn)
		}
		svc.close = db.Close
	}

	var err error
	svc.stateStore, err = stateStoreFactory(storeConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %s", err)
	}
	svc.componentStore, err = componentStoreFactory(storeConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open component store: %s", err)
	}
	svc.taxStore, err = taxStoreFactory(storeConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open tax store: %s", err)
	}

	return svc, nil
}

func (s *service) State() domain.StateRepository {
	return s.stateStore
}

func (s *service) Components() domain.ComponentRepository {
	return s.componentStore
}

func (s *service) Taxes() domain.TaxRepository {
	return s.taxStore
}

func (s *service) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.runInTx(ctx, fn)
}

func (s *service) Close() {
	s.stateStore.Close()
	s.componentStore.Close()
	s.taxStore.Close()
	// nolint:all
	s.close()
}

func migrateSqlite(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to init driver: %s", err)
	}

	source, err := iofs.New(migrations, "sqlite/migration")
	if err != nil {
		return fmt.Errorf("failed to embed migrations: %s", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "amalgamdb", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %s", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %s", err)
	}
	return nil
}
