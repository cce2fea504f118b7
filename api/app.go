package api

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kbukum/usersvc/auth"
	"github.com/kbukum/usersvc/auth/jwt"
	"github.com/kbukum/usersvc/auth/password"
	"github.com/kbukum/usersvc/authz"
	"github.com/kbukum/usersvc/logger"
	"github.com/kbukum/usersvc/users"
)

// Permissions checked on routes.
const (
	PermReadSelf   = "users:read_self"
	PermUsersAdmin = "users:admin"
)

// SessionProvider returns the database session a request runs on.
type SessionProvider func(ctx context.Context) *gorm.DB

// Providers are the dependencies resolved for every request.
type Providers struct {
	Session  SessionProvider
	Verifier password.Verifier
}

func (p Providers) validate() error {
	if p.Session == nil {
		return errors.New("api: session provider is required")
	}
	if p.Verifier == nil {
		return errors.New("api: password verifier is required")
	}
	return nil
}

// App is the HTTP API. Each request resolves the current Providers into a
// Scope; tests swap providers with Override.
type App struct {
	hasher    password.Hasher
	tokens    *jwt.Service[*Claims]
	validator auth.TokenValidator
	checker   authz.Checker
	log       *logger.Logger

	mu        sync.RWMutex
	base      Providers
	overrides []*override
	providers Providers
}

type override struct {
	apply func(*Providers)
}

// New builds the API. The hasher from cfg also serves as the default
// verifier when providers.Verifier is nil.
func New(cfg auth.Config, providers Providers, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	tokens, err := jwt.NewService(cfg.JWT, func() *Claims { return &Claims{} })
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	hasher := password.NewHasher(cfg.Password)
	if providers.Verifier == nil {
		providers.Verifier = hasher
	}
	if err := providers.validate(); err != nil {
		return nil, err
	}

	return &App{
		hasher:    hasher,
		tokens:    tokens,
		validator: auth.TokenValidatorFunc(tokens.ValidatorFunc()),
		checker: authz.NewMapChecker(map[string][]string{
			users.RoleAdmin: {"*:*"},
			users.RoleUser:  {PermReadSelf},
		}),
		base:      providers,
		providers: providers,
		log:       log.WithComponent("api"),
	}, nil
}

// NewSessionProvider returns a provider handing out db bound to the request
// context.
func NewSessionProvider(db *gorm.DB) SessionProvider {
	return func(ctx context.Context) *gorm.DB {
		return db.WithContext(ctx)
	}
}

// Providers returns the providers in effect.
func (a *App) Providers() Providers {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.providers
}

// Override applies fn to a copy of the current providers and installs the
// result. Overrides stack in call order. restore removes only this one, so
// later overrides stay in effect whatever order they are restored in; it is
// safe to call more than once.
//
//	restore := app.Override(func(p *api.Providers) { p.Verifier = password.AcceptAny })
//	t.Cleanup(restore)
func (a *App) Override(fn func(*Providers)) (restore func()) {
	o := &override{apply: fn}
	a.mu.Lock()
	a.overrides = append(a.overrides, o)
	a.resolve()
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			a.overrides = slices.DeleteFunc(a.overrides, func(x *override) bool { return x == o })
			a.resolve()
			a.mu.Unlock()
		})
	}
}

// resolve recomputes the effective providers. Callers hold mu.
func (a *App) resolve() {
	p := a.base
	for _, o := range a.overrides {
		o.apply(&p)
	}
	a.providers = p
}

// Hasher returns the password hasher.
func (a *App) Hasher() password.Hasher { return a.hasher }

// IssueToken signs an access token for u.
func (a *App) IssueToken(u *users.User) (string, error) {
	return a.tokens.GenerateAccess(&Claims{
		RegisteredClaims: jwtSubject(u.Email),
		Permissions:      u.Role(),
	})
}

// Register mounts the API under /api.
func (a *App) Register(r gin.IRouter) {
	a.routes(r.Group("/api", a.scopeMiddleware()))
}
