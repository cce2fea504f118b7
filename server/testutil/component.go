package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/usersvc/component"
	"github.com/kbukum/usersvc/logger"
	"github.com/kbukum/usersvc/server"
	"github.com/kbukum/usersvc/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	_ component.Component    = (*Component)(nil)
	_ testutil.TestComponent = (*Component)(nil)
)

// SetupFunc mounts routes on a freshly built server.
type SetupFunc func(s *server.Server) error

// Component serves a server.Server on a loopback httptest listener. Every
// Start and Reset builds a new server with the standard middleware and
// runs setup on it.
type Component struct {
	setup SetupFunc
	cfg   server.Config
	log   *logger.Logger

	mu  sync.RWMutex
	srv *server.Server
	ts  *httptest.Server
}

type Option func(*Component)

// WithConfig replaces the server settings (default: host 127.0.0.1).
func WithConfig(cfg server.Config) Option { return func(c *Component) { c.cfg = cfg } }

// WithLogger replaces the no-op logger.
func WithLogger(log *logger.Logger) Option { return func(c *Component) { c.log = log } }

func NewComponent(setup SetupFunc, opts ...Option) *Component {
	c := &Component{setup: setup, cfg: server.Config{Host: "127.0.0.1"}, log: logger.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Server is the server built by the last Start or Reset.
func (c *Component) Server() *server.Server {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.srv
}

// BaseURL is "http://127.0.0.1:<port>" while running, "" otherwise.
func (c *Component) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ts == nil {
		return ""
	}
	return c.ts.URL
}

// Client talks to the listener and leaves redirects for the test to check.
func (c *Component) Client() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ts == nil {
		return nil
	}
	client := *c.ts.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &client
}

func (c *Component) Name() string { return "server-test" }

func (c *Component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts != nil {
		return errors.New("component already started")
	}
	return c.serve()
}

func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
	return nil
}

func (c *Component) Health(context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ts == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Reset swaps in a new server and listener, dropping any routes a test
// added by hand.
func (c *Component) Reset(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts == nil {
		return errors.New("component not started")
	}
	c.close()
	return c.serve()
}

// Snapshot and Restore have nothing to capture: the server holds no state
// of its own.
func (c *Component) Snapshot(context.Context) (interface{}, error) { return nil, nil }
func (c *Component) Restore(context.Context, interface{}) error    { return nil }

func (c *Component) close() {
	if c.ts != nil {
		c.ts.Close()
		c.ts = nil
	}
}

// serve runs with c.mu held.
func (c *Component) serve() error {
	srv := server.New(c.cfg, c.log)
	if err := srv.ApplyMiddleware(); err != nil {
		return err
	}
	if c.setup != nil {
		if err := c.setup(srv); err != nil {
			return fmt.Errorf("server setup: %w", err)
		}
	}
	c.srv = srv
	c.ts = httptest.NewServer(srv.Handler())
	return nil
}
