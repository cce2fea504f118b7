package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	"github.com/kbukum/usersvc/component"
	"github.com/kbukum/usersvc/database/migration"
	"github.com/kbukum/usersvc/logger"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component opens the database on Start and, when WithMigrations was
// called, migrates it to the latest version before anything else starts.
type Component struct {
	cfg Config
	log *logger.Logger
	db  *DB

	migrations fs.FS
	root       string
}

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithMigrations applies source's root/<driver> migrations on Start, e.g.
// "postgres/000001_create_users.up.sql".
func (c *Component) WithMigrations(source fs.FS, root string) *Component {
	c.migrations, c.root = source, root
	return c
}

// DB is nil until Start succeeds.
func (c *Component) DB() *DB { return c.db }

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("Database component disabled")
		return nil
	}
	db, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db
	if c.migrations == nil {
		return nil
	}
	if err := migration.Up(db.GormDB, c.migrations, path.Join(c.root, string(db.Driver()))); err != nil {
		return fmt.Errorf("database migrate: %w", err)
	}
	return nil
}

func (c *Component) Stop(context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the database. A disabled component is always healthy.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.cfg.Enabled:
		h.Message = "disabled"
	case c.db == nil:
		h.Status, h.Message = component.StatusUnhealthy, "database not initialized"
	default:
		if s := c.db.CheckHealth(ctx); !s.Connected {
			h.Status, h.Message = component.StatusUnhealthy, "ping failed: "+s.Error
		}
	}
	return h
}

// Describe reports "driver:dbname pool=open/idle"; the DSN itself is never
// shown since it may hold credentials.
func (c *Component) Describe() component.Description {
	name, _ := DatabaseName(c.cfg.DSN)
	details := fmt.Sprintf("%s:%s pool=%d/%d", DriverOf(c.cfg.DSN), name, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.migrations != nil {
		details += " migrations=on"
	}
	return component.Description{Name: "Database", Type: "database", Details: details}
}
