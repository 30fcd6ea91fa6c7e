package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN             string `split_words:"true"`
	MaxConns        int32  `split_words:"true" default:"4"`
	ConnectTimeout  int    `split_words:"true" default:"5"`
	MaxConnIdleTime int    `split_words:"true" default:"300"`
}

func (c *Config) PoolConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, err
	}
	if c.MaxConns > 0 {
		cfg.MaxConns = c.MaxConns
	}
	cfg.ConnConfig.ConnectTimeout = time.Duration(c.ConnectTimeout) * time.Second
	cfg.MaxConnIdleTime = time.Duration(c.MaxConnIdleTime) * time.Second
	return cfg, nil
}

func (c *Config) New(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := c.PoolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
