package apitest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kbukum/usersvc/api"
	"github.com/kbukum/usersvc/auth"
	"github.com/kbukum/usersvc/auth/jwt"
	"github.com/kbukum/usersvc/auth/password"
	"github.com/kbukum/usersvc/component"
	"github.com/kbukum/usersvc/config"
	"github.com/kbukum/usersvc/database"
	dbtestutil "github.com/kbukum/usersvc/database/testutil"
	"github.com/kbukum/usersvc/logger"
	"github.com/kbukum/usersvc/migrations"
	"github.com/kbukum/usersvc/server"
	servertestutil "github.com/kbukum/usersvc/server/testutil"
	"github.com/kbukum/usersvc/testutil"
)

// DSNEnv names the environment variable holding the base DSN of the database
// the test database is derived from. When unset, a SQLite file in a temporary
// directory is used.
const DSNEnv = "TEST_DATABASE_DSN"

// Suite owns the test database and the API server of one test binary.
// The server listens on loopback for tests that need a real socket; Env
// clients skip it and call the same handler in process.
type Suite struct {
	Settings *api.Settings
	DB       *dbtestutil.Database
	App      *api.App
	HTTP     *servertestutil.Component

	log     *logger.Logger
	tempDir string
	initErr error
}

// Option configures a Suite.
type Option func(*Suite)

// WithSettings replaces the default test settings.
func WithSettings(s *api.Settings) Option {
	return func(st *Suite) { st.Settings = s }
}

// WithLogger sets the logger (default: no-op).
func WithLogger(log *logger.Logger) Option {
	return func(st *Suite) { st.log = log }
}

// NewSuite builds the suite. Nothing touches the database until Run or Start.
func NewSuite(opts ...Option) *Suite {
	s := &Suite{log: logger.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.Settings == nil {
		s.Settings, s.tempDir, s.initErr = defaultSettings()
		if s.initErr != nil {
			return s
		}
	}
	s.Settings.ApplyDefaults()
	if s.initErr = s.Settings.Validate(); s.initErr != nil {
		return s
	}

	s.DB = dbtestutil.New(s.Settings.Database, s.log).WithMigrations(migrations.FS, ".")

	s.App, s.initErr = api.New(s.Settings.Auth, api.Providers{Session: s.session}, s.log)
	if s.initErr != nil {
		return s
	}

	s.HTTP = servertestutil.NewComponent(s.mount,
		servertestutil.WithConfig(s.Settings.Server),
		servertestutil.WithLogger(s.log),
	)
	return s
}

func (s *Suite) mount(srv *server.Server) error {
	srv.RegisterDefaultEndpoints(s.Settings.Name, func(ctx context.Context) []component.Health {
		return []component.Health{s.DB.Health(ctx)}
	})
	s.App.Register(srv.GinEngine())
	return nil
}

func defaultSettings() (*api.Settings, string, error) {
	dsn := os.Getenv(DSNEnv)
	var dir string
	if dsn == "" {
		var err error
		if dir, err = os.MkdirTemp("", "usersvc-test-"); err != nil {
			return nil, "", fmt.Errorf("apitest: temp dir: %w", err)
		}
		dsn = filepath.Join(dir, "app.db")
	}
	return &api.Settings{
		ServiceConfig: config.ServiceConfig{
			Name:        api.ServiceName,
			Environment: "test",
			Logging:     logger.Config{Level: "error"},
		},
		Database: database.Config{DSN: dsn, MaxRetries: 1, LogLevel: "silent"},
		Auth: auth.Config{
			JWT:      jwt.Config{Secret: "test-secret"},
			Password: password.Config{BcryptCost: bcrypt.MinCost},
		},
	}, dir, nil
}

// session is the default provider: the pool of the test database.
func (s *Suite) session(ctx context.Context) *gorm.DB {
	return s.DB.DB().WithContext(ctx)
}

// Handler returns the API with its middleware. It is nil until Start.
func (s *Suite) Handler() http.Handler {
	if srv := s.HTTP.Server(); srv != nil {
		return srv.Handler()
	}
	return nil
}

// Start creates the test database, then the server. It fails with
// dbtestutil.ErrDatabaseExists if the database is already there.
func (s *Suite) Start(ctx context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}
	if err := s.DB.Start(ctx); err != nil {
		return err
	}
	if err := s.HTTP.Start(ctx); err != nil {
		return errors.Join(err, s.DB.Stop(ctx))
	}
	return nil
}

// Stop closes the server, drops the test database and removes the
// temporary directory.
func (s *Suite) Stop(ctx context.Context) error {
	var errs []error
	if s.HTTP != nil {
		errs = append(errs, s.HTTP.Stop(ctx))
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Stop(ctx))
	}
	if s.tempDir != "" {
		_ = os.RemoveAll(s.tempDir)
	}
	return errors.Join(errs...)
}

// Run starts the suite, runs the tests and tears the suite down whatever
// the outcome. The result is the exit code for os.Exit.
func (s *Suite) Run(m *testing.M) int {
	if s.initErr != nil {
		fmt.Fprintf(os.Stderr, "apitest: %v\n", s.initErr)
		return 1
	}
	mgr := testutil.NewManager(context.Background())
	mgr.Add(s.DB)
	mgr.Add(s.HTTP)
	code := mgr.Run(m.Run)
	if s.tempDir != "" {
		_ = os.RemoveAll(s.tempDir)
	}
	return code
}
