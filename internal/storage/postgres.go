package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wheres-my-lunch/internal/config"
	"wheres-my-lunch/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStorage wraps every persistence failure crossing the package
// boundary. The chat layer reports a generic failure and keeps the
// session so the user can retry without re-entering answers.
var ErrStorage = errors.New("storage failure")

type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func Connect(ctx context.Context, cfg *config.Database, log *logger.Logger) (*Store, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	log.Info("startup", "db_connected", "Connected to PostgreSQL database")
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the two tables and their indexes. The unique index on
// (user_id, instructor_name, date_key) backs the replace-on-same-key
// upsert semantics.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS employees (
			user_id BIGINT PRIMARY KEY,
			username TEXT,
			full_name TEXT,
			first_registration DATE NOT NULL DEFAULT CURRENT_DATE
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			instructor_name TEXT NOT NULL,
			date_key TEXT NOT NULL,
			quantity INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_date ON orders(date_key)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_line_key
			ON orders(user_id, instructor_name, date_key)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", ErrStorage, err)
		}
	}

	s.log.Info("startup", "db_migrated", "Database schema is up to date")
	return nil
}
