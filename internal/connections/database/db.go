package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"restaurant-orders/internal/common/config"
)

// DSN renders cfg in libpq keyword form. It is shared by the pooled
// connection and the dedicated change listener connection.
func DSN(cfg config.DB) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Pass, cfg.Name, sslmode)
}

// ConnectDB opens the pool and waits until the server answers a ping,
// retrying while the database container is still starting.
func ConnectDB(ctx context.Context, cfg config.DB) (*sql.DB, error) {
	const (
		maxRetries = 10
		retryDelay = 2 * time.Second
		pingTTL    = 5 * time.Second
	)

	var (
		db  *sql.DB
		err error
	)
	for i := 1; i <= maxRetries; i++ {
		db, err = sql.Open("pgx", DSN(cfg))
		if err == nil {
			if cfg.MaxConns > 0 {
				db.SetMaxOpenConns(cfg.MaxConns)
			}
			pctx, cancel := context.WithTimeout(ctx, pingTTL)
			err = db.PingContext(pctx)
			cancel()
			if err == nil {
				return db, nil
			}
			_ = db.Close()
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("db connect canceled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", maxRetries, err)
}
