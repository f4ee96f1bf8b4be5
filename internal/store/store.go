package store

import (
	"context"
	"fmt"

	"bookshop-bot/config"
)

// Collection names. Every backend persists each collection as a single
// document that is loaded and replaced whole.
const (
	CollectionUsers  = "users"
	CollectionBooks  = "books"
	CollectionOrders = "orders"
	CollectionCard   = "card"
)

// Backend is the raw persistence layer: whole-collection load and
// all-or-nothing replace. A missing or corrupt collection loads as empty.
// Backends do not serialize concurrent read-modify-write cycles; that is
// the job of Records.
type Backend interface {
	Load(ctx context.Context, collection string, out interface{}) error
	Replace(ctx context.Context, collection string, data interface{}) error
	Close() error
}

// Open creates the backend selected by the configuration.
func Open(cfg config.StoreConfig) (Backend, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileBackend(cfg.DataDir)
	case "redis":
		return NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "postgres":
		return NewPostgresBackend(cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}
