// Package nebula_db records dispatched requests into PostgreSQL. It provides a small
// insert builder over pgx, connection settings read from the environment, and an
// AccessLog that plugs into an application as an after-request hook.
package nebula_db

import (
	"context"
	"net/url"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type DatabaseConfiguration struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DatabaseFromEnvironmentWithFallback reads DATABASE_* variables, using the given
// values for any that are unset.
func DatabaseFromEnvironmentWithFallback(host string, port int, username string, password string, database string) DatabaseConfiguration {
	cfg := DatabaseConfiguration{
		Host:     os.Getenv("DATABASE_HOST"),
		Port:     os.Getenv("DATABASE_PORT"),
		Username: os.Getenv("DATABASE_USERNAME"),
		Password: os.Getenv("DATABASE_PASSWORD"),
		Database: os.Getenv("DATABASE_DATABASE"),
	}
	if cfg.Host == "" {
		cfg.Host = host
	}
	if cfg.Port == "" {
		cfg.Port = strconv.Itoa(port)
	}
	if cfg.Username == "" {
		cfg.Username = username
	}
	if cfg.Password == "" {
		cfg.Password = password
	}
	if cfg.Database == "" {
		cfg.Database = database
	}
	return cfg
}

// GetConnectionString returns a postgres:// URL with escaped credentials.
func (cfg *DatabaseConfiguration) GetConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   cfg.Host + ":" + cfg.Port,
		Path:   "/" + cfg.Database,
	}
	return u.String()
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg DatabaseConfiguration) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.GetConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "creating connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "connecting to %s:%s", cfg.Host, cfg.Port)
	}
	return pool, nil
}
