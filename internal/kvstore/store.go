package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lectern/internal/config"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("key not found")

// Store is a durable key-value capability. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open selects the backend configured in storage.backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		store, err := OpenRedis(ctx, RedisOptions{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			Prefix:   cfg.Storage.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite", "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		store, err := OpenSQLite(ctx, cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// GetJSON decodes the value stored under key into dst. It reports false when
// the key is absent.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// PutJSON encodes value and stores it under key.
func PutJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}
