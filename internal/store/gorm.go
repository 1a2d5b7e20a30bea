package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"dreamweaver_backend/internal/logger"
)

// Entry - строка kv-таблицы
type Entry struct {
	Key       string         `gorm:"primaryKey;type:varchar(512)"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Entry) TableName() string { return "kv_entries" }

// GormStore - адаптер поверх Postgres
type GormStore struct {
	db *gorm.DB
}

// NewGormStore подключается к Postgres и мигрирует kv-таблицу
func NewGormStore(dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, errors.New("store: postgres driver requires DATABASE_URL")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewGormStoreFromDB(db)
}

// NewGormStoreFromDB оборачивает существующее соединение
func NewGormStoreFromDB(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate kv_entries: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		logger.StoreLog("postgres", "get", key, err)
		return nil, false, err
	}
	return []byte(e.Value), true, nil
}

func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	e := Entry{Key: key, Value: datatypes.JSON(value)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		logger.StoreLog("postgres", "set", key, err)
	}
	return err
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error
	if err != nil {
		logger.StoreLog("postgres", "delete", key, err)
	}
	return err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
