package store

import (
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"roastbot-api/internal/config"
	"roastbot-api/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// Store wraps the SQLite database and owns all persistence queries.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite file at cfg.DBPath and migrates the schema.
func Open(cfg *config.Config) (*Store, error) {
	// Busy timeout keeps concurrent handlers from surfacing SQLITE_BUSY
	dsn := cfg.DBPath + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.RoastConfig{},
		&models.RoastHistory{},
	); err != nil {
		return nil, err
	}

	log.Info().Str("path", cfg.DBPath).Msg("Database ready")

	return &Store{db: db}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
