package gorm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alchemorsel/studio/internal/ports/outbound"
)

// Store implements outbound.KeyValueStore on a single SQL table
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ outbound.KeyValueStore = (*Store)(nil)

// NewStore migrates the entries table and returns the store
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&EntryModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate entries: %w", err)
	}
	return &Store{db: db, logger: logger.Named("sql_store")}, nil
}

// Get retrieves a value
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var model EntryModel
	err := s.db.WithContext(ctx).Where("kv_key = ?", key).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, outbound.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return model.Value, nil
}

// Set inserts or replaces a value
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	model := EntryModel{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kv_value", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		s.logger.Error("SQL set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("kv_key = ?", key).Delete(&EntryModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
