package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pixelpaws-server/internal/model"
)

const sqliteBusyTimeoutMillis = 5000

type Store struct {
	DB *gorm.DB
}

type Options struct {
	// DatabaseURL selects the backend: postgres:// URLs and key=value DSNs
	// use PostgreSQL, sqlite:// URLs and bare paths use SQLite.
	DatabaseURL string
	LogSQL      bool
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func Open(opts Options) (*Store, error) {
	dialector, isSQLite, err := dialectorFor(opts.DatabaseURL)
	if err != nil {
		return nil, err
	}

	lvl := logger.Silent
	if opts.LogSQL {
		lvl = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(log.Writer(), "", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if isSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		// SQLite has a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db), nil
}

func dialectorFor(databaseURL string) (gorm.Dialector, bool, error) {
	raw := strings.TrimSpace(databaseURL)
	switch {
	case raw == "":
		return nil, false, fmt.Errorf("empty database url")
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"), strings.Contains(raw, "host="):
		return postgres.Open(raw), false, nil
	}

	path := sqlitePath(raw)
	if path == "" {
		return nil, false, fmt.Errorf("invalid sqlite database url %q", databaseURL)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, false, fmt.Errorf("create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", path, sqliteBusyTimeoutMillis)
	return sqlite.Open(dsn), true, nil
}

// sqlitePath accepts sqlite:///relative.db, sqlite:////abs/path.db and bare
// file paths.
func sqlitePath(raw string) string {
	switch {
	case strings.HasPrefix(raw, "sqlite:///"):
		return strings.TrimPrefix(raw, "sqlite:///")
	case strings.HasPrefix(raw, "sqlite://"):
		return strings.TrimPrefix(raw, "sqlite://")
	}
	return raw
}

// Migrate creates or updates the cats and devices tables. Cats go first so
// the devices foreign key has a target.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).AutoMigrate(&model.Cat{}, &model.Device{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
