package auth

import (
	"errors"
	"fmt"

	"github.com/kbukum/usersvc/auth/jwt"
	"github.com/kbukum/usersvc/auth/password"
)

// TokenValidator turns a bearer token into claims. The middleware stores
// whatever it returns in the request context for authctx.Get.
type TokenValidator interface {
	ValidateToken(token string) (any, error)
}

// TokenValidatorFunc lets jwt.Service.ValidatorFunc serve as a TokenValidator.
type TokenValidatorFunc func(token string) (any, error)

func (f TokenValidatorFunc) ValidateToken(token string) (any, error) { return f(token) }

// Config is the auth block of the service settings:
//
//	auth:
//	  jwt:
//	    secret: change-me
//	    access_token_ttl: 30m
//	  password:
//	    algorithm: bcrypt
//	    bcrypt_cost: 12
type Config struct {
	JWT      jwt.Config      `mapstructure:"jwt"`
	Password password.Config `mapstructure:"password"`
}

func (c *Config) ApplyDefaults() {
	c.JWT.ApplyDefaults()
	c.Password.ApplyDefaults()
}

// Validate reports every invalid field, not just the first.
func (c *Config) Validate() error {
	var errs []error
	if err := c.JWT.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth.jwt: %w", err))
	}
	if err := c.Password.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth.password: %w", err))
	}
	return errors.Join(errs...)
}
