package api

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the access token payload: sub is the user's email and
// permissions is the role the authorization checker resolves.
type Claims struct {
	gojwt.RegisteredClaims
	Permissions string `json:"permissions"`
}

// SetDefaults stamps the standard time, issuer and audience claims.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	c.IssuedAt = gojwt.NewNumericDate(now)
	c.NotBefore = gojwt.NewNumericDate(now)
	c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	if issuer != "" {
		c.Issuer = issuer
	}
	if len(audience) > 0 {
		c.Audience = audience
	}
}

func jwtSubject(sub string) gojwt.RegisteredClaims {
	return gojwt.RegisteredClaims{Subject: sub}
}
