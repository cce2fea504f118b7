package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names an HMAC algorithm. Asymmetric keys are not supported.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

var signingMethods = map[SigningMethod]gojwt.SigningMethod{
	HS256: gojwt.SigningMethodHS256,
	HS384: gojwt.SigningMethodHS384,
	HS512: gojwt.SigningMethodHS512,
}

// Config is the auth.jwt block. Issuer and Audience are stamped on every
// token and checked on Parse when set.
type Config struct {
	Secret         string        `mapstructure:"secret"`
	Method         SigningMethod `mapstructure:"method"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       []string      `mapstructure:"audience"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// ApplyDefaults gives HS256 tokens valid for 30 minutes.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 30 * time.Minute
	}
}

func (c *Config) Validate() error {
	if _, ok := signingMethods[c.Method]; !ok {
		return errors.New("unsupported signing method: " + string(c.Method))
	}
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	if c.AccessTokenTTL < 0 {
		return errors.New("access_token_ttl must not be negative")
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	if m, ok := signingMethods[c.Method]; ok {
		return m
	}
	return gojwt.SigningMethodHS256
}

func (c *Config) key() []byte { return []byte(c.Secret) }
