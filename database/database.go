package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/usersvc/logger"
)

// DB is an open GORM pool plus the configuration it was opened with.
type DB struct {
	GormDB *gorm.DB

	log       *logger.Logger
	cfg       Config
	driver    Driver
	closeOnce sync.Once
	closeErr  error
}

// New opens the database named by cfg.DSN, picking the dialector from it.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	dialector, err := Dialector(cfg.DSN)
	if err != nil {
		return nil, err
	}
	return Open(ctx, dialector, cfg, log)
}

// Open connects through dialector, retrying MaxRetries times with a linear
// backoff. Canceling ctx stops the retries.
func Open(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("database")

	gormCfg := &gorm.Config{
		Logger:         newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("database: connect canceled: %w", err)
		}
		db, err := connect(ctx, dialector, gormCfg, cfg)
		if err == nil {
			log.Info("Database connection established", map[string]interface{}{
				"attempt": attempt,
				"driver":  dialector.Name(),
			})
			return &DB{GormDB: db, log: log, cfg: cfg, driver: DriverOf(cfg.DSN)}, nil
		}
		lastErr = err
		if attempt >= cfg.MaxRetries {
			break
		}

		wait := time.Duration(attempt) * cfg.RetryBackoff
		log.Warn("Database connection failed, retrying", map[string]interface{}{
			"attempt":         attempt,
			logger.FieldError: err.Error(),
			"backoff":         wait.String(),
		})
		if err := sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("database: connect canceled: %w", err)
		}
	}
	return nil, fmt.Errorf("database: no connection after %d attempts: %w", cfg.MaxRetries, lastErr)
}

func connect(ctx context.Context, dialector gorm.Dialector, gormCfg *gorm.Config, cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}
	pool, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Driver returns the engine behind the connection.
func (d *DB) Driver() Driver { return d.driver }

// Config returns the effective configuration, defaults applied.
func (d *DB) Config() Config { return d.cfg }

// Close closes the pool. Later calls return the first result.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		var pool *sql.DB
		if pool, d.closeErr = d.GormDB.DB(); d.closeErr != nil {
			return
		}
		d.log.Info("Closing database connection")
		d.closeErr = pool.Close()
	})
	return d.closeErr
}

// WithContext returns a session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate creates or alters tables for models. The service itself
// migrates with SQL files; this serves tests that define their own models.
func (d *DB) AutoMigrate(ctx context.Context, models ...interface{}) error {
	d.log.Debug("Auto-migrating models", map[string]interface{}{"models": len(models)})
	if err := d.GormDB.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("database: auto-migrate: %w", err)
	}
	return nil
}

// TransactionFunc is the body of a transaction.
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction runs fn inside a transaction begun on db and rolls back on
// error or panic. db may itself be a transaction or an isolated test session,
// in which case commit means whatever that session makes of it.
func WithTransaction(ctx context.Context, db *gorm.DB, log *logger.Logger, fn TransactionFunc) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("database: begin: %w", tx.Error)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if r := recover(); r != nil {
			tx.Rollback()
			if log != nil {
				log.Error("Transaction rolled back after panic", map[string]interface{}{
					"panic": fmt.Sprint(r),
				})
			}
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	committed = true
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("database: commit: %w", err)
	}
	return nil
}

// WithTransaction runs fn in a transaction on the pool.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	return WithTransaction(ctx, d.GormDB, d.log, fn)
}

// HealthStatus is a ping result with pool counters.
type HealthStatus struct {
	Connected  bool          `json:"connected"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency"`
	OpenConns  int           `json:"open_connections"`
	InUseConns int           `json:"in_use_connections"`
	IdleConns  int           `json:"idle_connections"`
}

// CheckHealth pings the pool.
func (d *DB) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()
	pool, err := d.GormDB.DB()
	if err == nil {
		err = pool.PingContext(ctx)
	}
	status := HealthStatus{Latency: time.Since(start)}
	if err != nil {
		status.Error = err.Error()
		return status
	}

	stats := pool.Stats()
	status.Connected = true
	status.OpenConns = stats.OpenConnections
	status.InUseConns = stats.InUse
	status.IdleConns = stats.Idle
	return status
}
