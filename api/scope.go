package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kbukum/usersvc/auth/authctx"
	"github.com/kbukum/usersvc/auth/password"
	"github.com/kbukum/usersvc/logger"
	"github.com/kbukum/usersvc/users"
)

// Scope holds what one request runs with. It is built from the Providers in
// effect when the request arrives and never changes afterwards.
type Scope struct {
	DB       *gorm.DB
	Verifier password.Verifier
	Users    *users.Service

	// Claims and User are set once the bearer token has been checked.
	Claims *Claims
	User   *users.User
}

type scopeKey struct{}

// WithScope stores s in ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the request scope stored by the API middleware.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok
}

func (a *App) newScope(ctx context.Context) *Scope {
	p := a.Providers()
	db := p.Session(ctx).WithContext(ctx)
	return &Scope{
		DB:       db,
		Verifier: p.Verifier,
		Users:    users.NewService(users.NewStore(db), p.Verifier, a.hasher, a.log),
	}
}

// scopeMiddleware installs a fresh Scope on every request.
func (a *App) scopeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := a.newScope(c.Request.Context())
		c.Request = c.Request.WithContext(WithScope(c.Request.Context(), s))
		c.Next()
	}
}

// currentUser resolves the token subject to an active account. It runs after
// middleware.Auth.
func (a *App) currentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		s := scope(c)
		claims, err := authctx.GetOrError[*Claims](ctx)
		if err != nil {
			abort(c, unauthorized())
			return
		}
		u, err := s.Users.GetByEmail(ctx, claims.Subject)
		if err != nil {
			abort(c, unauthorized())
			return
		}
		if !u.IsActive {
			abort(c, inactive())
			return
		}
		s.Claims, s.User = claims, u
		c.Request = c.Request.WithContext(logger.ContextWithUserID(ctx, u.Email))
		c.Next()
	}
}

// scope returns the request scope. The API group always installs one.
func scope(c *gin.Context) *Scope {
	s, _ := ScopeFrom(c.Request.Context())
	return s
}

// role is the authorization subject of the request.
func role(c *gin.Context) string {
	if s := scope(c); s != nil && s.Claims != nil {
		return s.Claims.Permissions
	}
	return ""
}
