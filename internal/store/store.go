package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrStoreClosed возвращается адаптерами после Close
var ErrStoreClosed = errors.New("store: closed")

// Store - порт key-value хранилища. Значения - JSON документы.
// Адаптеры безопасны для конкурентного использования.
type Store interface {
	// Get возвращает значение и found=false, если ключа нет
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config выбирает адаптер
type Config struct {
	Driver        string // memory, postgres, redis
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New создает Store по конфигурации
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewGormStore(cfg.DatabaseURL)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// Keys строит логические ключи с общим префиксом
type Keys struct {
	Prefix string
}

// User - запись аккаунта по нормализованному email
func (k Keys) User(id string) string { return k.join("users", id) }

// Session - сессионный слот пользователя
func (k Keys) Session(userID string) string { return k.join("session", userID) }

// Dreams - коллекция снов пользователя
func (k Keys) Dreams(userID string) string { return k.join("dreams", userID) }

func (k Keys) join(kind, id string) string {
	if k.Prefix == "" {
		return kind + ":" + id
	}
	return k.Prefix + ":" + kind + ":" + id
}

// GetJSON читает и декодирует значение. found=false, если ключа нет.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON кодирует и записывает значение
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
