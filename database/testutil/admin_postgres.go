package testutil

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kbukum/usersvc/database"
)

// maintenanceDB is the database admin statements connect to. CREATE and DROP
// DATABASE cannot run against the database they name.
const maintenanceDB = "postgres"

// pgConn is the subset of *pgx.Conn the admin uses.
type pgConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// PostgresAdmin creates and drops databases on the server of a base DSN. Each
// operation uses its own short-lived connection to the maintenance database.
type PostgresAdmin struct {
	connect func(ctx context.Context) (pgConn, error)
}

// NewPostgresAdmin creates an admin for the server dsn points at.
func NewPostgresAdmin(dsn string) (*PostgresAdmin, error) {
	admin, err := database.WithDatabaseName(dsn, maintenanceDB)
	if err != nil {
		return nil, err
	}
	cfg, err := pgx.ParseConfig(admin)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	return &PostgresAdmin{
		connect: func(ctx context.Context) (pgConn, error) {
			return pgx.ConnectConfig(ctx, cfg)
		},
	}, nil
}

func (a *PostgresAdmin) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := a.with(ctx, func(conn pgConn) error {
		return conn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("check database %s: %w", name, err)
	}
	return exists, nil
}

func (a *PostgresAdmin) Create(ctx context.Context, name string) error {
	err := a.with(ctx, func(conn pgConn) error {
		_, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())
		return err
	})
	if err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

// Drop terminates leftover sessions on the database and drops it.
func (a *PostgresAdmin) Drop(ctx context.Context, name string) error {
	err := a.with(ctx, func(conn pgConn) error {
		if _, err := conn.Exec(ctx,
			"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()",
			name); err != nil {
			return err
		}
		_, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize())
		return err
	})
	if err != nil {
		return fmt.Errorf("drop database %s: %w", name, err)
	}
	return nil
}

func (a *PostgresAdmin) with(ctx context.Context, fn func(pgConn) error) (err error) {
	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(ctx); err == nil {
			err = cerr
		}
	}()
	return fn(conn)
}
