package jwt

import (
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

type testClaims struct {
	gojwt.RegisteredClaims
	Permissions string `json:"permissions"`
}

func (c *testClaims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	c.IssuedAt = gojwt.NewNumericDate(now)
	c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	c.Issuer = issuer
	c.Audience = audience
}

func newTestService(t *testing.T, cfg Config) *Service[*testClaims] {
	t.Helper()
	svc, err := NewService(cfg, func() *testClaims { return &testClaims{} })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Method != HS256 || cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "secret") {
		t.Errorf("expected missing secret error, got %v", err)
	}

	cfg.Secret = "s3cret"
	cfg.Method = "RS256"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unsupported method error")
	}
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	if _, err := NewService(Config{}, func() *testClaims { return &testClaims{} }); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestGenerateAccessAndParse(t *testing.T) {
	svc := newTestService(t, Config{Secret: "s3cret", Issuer: "usersvc"})

	token, err := svc.GenerateAccess(&testClaims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "fake@email.com"},
		Permissions:      "user",
	})
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "fake@email.com" || claims.Permissions != "user" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil || claims.Issuer != "usersvc" {
		t.Errorf("standard claims not stamped: %+v", claims.RegisteredClaims)
	}

	v, err := svc.ValidatorFunc()(token)
	if err != nil {
		t.Fatalf("ValidatorFunc: %v", err)
	}
	if _, ok := v.(*testClaims); !ok {
		t.Errorf("ValidatorFunc returned %T", v)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	a := newTestService(t, Config{Secret: "one"})
	b := newTestService(t, Config{Secret: "two"})

	token, err := a.GenerateAccess(&testClaims{Permissions: "admin"})
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}
	if _, err := b.Parse(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseRejectsOtherAlgorithm(t *testing.T) {
	svc := newTestService(t, Config{Secret: "s3cret", Method: HS256})
	other := newTestService(t, Config{Secret: "s3cret", Method: HS512})

	token, err := other.GenerateAccess(&testClaims{})
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}
	if _, err := svc.Parse(token); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}

func TestParseExpired(t *testing.T) {
	svc := newTestService(t, Config{Secret: "s3cret", AccessTokenTTL: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := svc.GenerateAccess(&testClaims{})
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}

	svc.now = time.Now
	_, err = svc.Parse(token)
	if !IsExpired(err) {
		t.Fatalf("expected expired error, got %v", err)
	}
}
