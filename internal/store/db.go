package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/yuanjian-org/app-sub000/internal/config"
)

// NewPostgresPool opens the application database pool
func NewPostgresPool(ctx context.Context, dbCfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if dbCfg.MaxOpenConn > 0 {
		poolCfg.MaxConns = int32(dbCfg.MaxOpenConn)
	}
	if dbCfg.ConnMaxIdle > 0 {
		poolCfg.MaxConnIdleTime = dbCfg.ConnMaxIdle
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return pool, nil
}

// ConnectPostgres opens the queue database used by ScheduledStorage
func ConnectPostgres(dbCfg config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dbCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(dbCfg.MaxOpenConn)
	db.SetConnMaxIdleTime(dbCfg.ConnMaxIdle)

	// ping to ensure connection is valid
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}
