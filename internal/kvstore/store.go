// Package kvstore provides the string key-value stores that persist the
// session across process restarts.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a string-valued key-value store. Delete of a missing key is not an
// error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config selects and configures a Store.
type Config struct {
	Driver string
	// Path is the document path for the file driver.
	Path string
	// DSN is the connection string for the postgres driver.
	DSN string
	// Table overrides the postgres table name.
	Table string
	// Redis settings.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// KeyPrefix namespaces keys for shared backends (redis).
	KeyPrefix string
}

// Open builds the store selected by cfg.Driver. The caller closes the result
// with Close.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return NewFile(cfg.Path)
	case DriverPostgres:
		s, err := OpenSQL(DriverPostgres, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverRedis:
		s := NewRedis(RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("kvstore: unknown driver %q", cfg.Driver)
	}
}

// Close releases s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("kvstore: key is required")
	}
	return nil
}
