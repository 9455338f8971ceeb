package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mthleonn/bot-auge/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB wraps the gorm handle for the single local SQLite file that owns all
// persisted bot state.
type DB struct {
	gorm   *gorm.DB
	logger *zap.Logger
}

// New opens (creating if necessary) the SQLite database at path, applies
// pragmas, migrates the schema and seeds defaults. The parent directory is
// created so a fresh deploy works with an empty data volume.
func New(path string, logger *zap.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	// One writer at a time keeps SQLite happy under the sweep + event loop.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
	_, _ = sqlDB.Exec("PRAGMA synchronous = NORMAL;")

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.LinkClick{},
		&models.ScheduledMessage{},
		&models.Setting{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	if err := seedDefaults(gdb); err != nil {
		return nil, fmt.Errorf("seed defaults: %w", err)
	}

	logger.Info("database ready", zap.String("path", path))
	return &DB{gorm: gdb, logger: logger}, nil
}

// seedDefaults inserts settings the bot expects to exist, without
// overwriting values an admin already changed.
func seedDefaults(gdb *gorm.DB) error {
	defaults := []models.Setting{
		{Key: "meeting_link", Value: "https://meet.google.com/auge-traders-weekly"},
	}
	for _, s := range defaults {
		var count int64
		if err := gdb.Model(&models.Setting{}).Where("setting_key = ?", s.Key).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			s.UpdatedAt = time.Now()
			if err := gdb.Create(&s).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// Gorm exposes the underlying handle for the repositories.
func (db *DB) Gorm() *gorm.DB {
	return db.gorm
}

// Health pings the database; used by the health endpoint.
func (db *DB) Health() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close drains the connection pool.
func (db *DB) Close() {
	db.logger.Info("closing database")
	if sqlDB, err := db.gorm.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
