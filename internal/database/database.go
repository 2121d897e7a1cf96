// Package database opens the store selected by configuration.
package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/campus-forum/backend/internal/config"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage/gormstore"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage/memstore"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage/mongostore"
)

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg)
	case config.DriverMemory:
		log.Println("⚠️  Using in-memory store, data is lost on exit")
		return memstore.New(), nil
	case config.DriverPostgres, config.DriverSQLite:
		db, err := OpenGorm(cfg.DatabaseURL, !cfg.IsDevelopment())
		if err != nil {
			return nil, err
		}
		store := gormstore.New(db)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		log.Println("✅ Database migrations completed")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// OpenGorm opens a GORM handle for a postgres:// or sqlite:// URL.
func OpenGorm(url string, quiet bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		dialector = postgres.Open(url)
	case strings.HasPrefix(url, "sqlite://"):
		dialector = sqlite.Open(strings.TrimPrefix(url, "sqlite://"))
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL prefix, must start with 'postgres://' or 'sqlite://'")
	}

	level := logger.Info
	if quiet {
		level = logger.Warn
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  !quiet,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// A single writer avoids "database is locked" under concurrent requests.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Printf("✅ Database connected successfully (%s)", dialector.Name())
	return db, nil
}

func openMongo(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongostore.Connect(connectCtx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	store := mongostore.New(client, cfg.MongoDB)
	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Printf("✅ Connected to MongoDB database %s", cfg.MongoDB)
	return store, nil
}

// Health checks the health of the store by pinging it.
func Health(ctx context.Context, store storage.Store) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := store.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	if gs, ok := store.(*gormstore.Store); ok {
		if sqlDB, err := gs.DB().DB(); err == nil {
			dbStats := sqlDB.Stats()
			stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
			stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
			stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)
		}
	}
	return stats
}
