package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const createCollectionsTable = `
	CREATE TABLE IF NOT EXISTS collections (
		name       TEXT PRIMARY KEY,
		data       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// PostgresBackend keeps each collection as one JSONB row; replace is a
// single upsert, so it is all-or-nothing.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend connects and ensures the collections table exists.
func NewPostgresBackend(databaseURL string) (*PostgresBackend, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(createCollectionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create collections table: %w", err)
	}

	return &PostgresBackend{db: db}, nil
}

func (p *PostgresBackend) Load(ctx context.Context, collection string, out interface{}) error {
	var data []byte
	err := p.db.GetContext(ctx, &data,
		"SELECT data FROM collections WHERE name = $1", collection)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return nil
	}
	return nil
}

func (p *PostgresBackend) Replace(ctx context.Context, collection string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal collection %s: %w", collection, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO collections (name, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		collection, payload)
	if err != nil {
		return fmt.Errorf("failed to replace collection %s: %w", collection, err)
	}
	return nil
}

func (p *PostgresBackend) Close() error {
	return p.db.Close()
}
