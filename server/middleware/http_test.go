package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/usersvc/auth"
	"github.com/kbukum/usersvc/auth/authctx"
	"github.com/kbukum/usersvc/authz"
	apperrors "github.com/kbukum/usersvc/errors"
	"github.com/kbukum/usersvc/logger"
	"github.com/kbukum/usersvc/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_NoPanic(t *testing.T) {
	handler := middleware.Recovery(logger.NewNop())(okHandler)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRecovery_Panic(t *testing.T) {
	handler := middleware.Recovery(logger.NewNop())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("test panic")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error.Code != apperrors.ErrCodeInternal || body.Detail == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID_GeneratesID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
		if r.Header.Get(middleware.HeaderRequestID) == "" {
			t.Error("expected X-Request-Id in request headers")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	got := rr.Header().Get(middleware.HeaderRequestID)
	if got == "" {
		t.Fatal("expected X-Request-Id in response headers")
	}
	if seen != got {
		t.Errorf("context request id = %q, header = %q", seen, got)
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	handler := middleware.RequestID()(okHandler)

	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "existing-id")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(middleware.HeaderRequestID); got != "existing-id" {
		t.Fatalf("expected existing-id, got %q", got)
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func corsConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
		ExposedHeaders: []string{"Content-Range"},
	}
}

func TestCORS_SetHeaders(t *testing.T) {
	handler := middleware.CORS(corsConfig())(okHandler)

	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Expose-Headers"); got != "Content-Range" {
		t.Errorf("Expose-Headers = %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := middleware.CORS(corsConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("OPTIONS", "/", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rr.Code)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	handler := middleware.CORS(corsConfig())(okHandler)

	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Origin", "http://evil.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no Allow-Origin, got %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/", http.NoBody)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("preflight from disallowed origin: expected 403, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// BodySizeLimit
// ---------------------------------------------------------------------------

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 7},
		{"10", 10},
		{"512KB", 512 << 10},
		{"1mb", 1 << 20},
		{"2GB", 2 << 30},
		{"100B", 100},
		{"garbage", 7},
		{"-5MB", 7},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := middleware.ParseSize(tt.in, 7); got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestBodySizeLimit(t *testing.T) {
	handler := middleware.BodySizeLimit("10")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader("small")))
	if rr.Code != http.StatusOK {
		t.Errorf("small body: expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 64))))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: expected 413, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Chain
// ---------------------------------------------------------------------------

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := middleware.Chain(mw("a"), mw("b"), mw("c"))(okHandler)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody))

	if strings.Join(order, ",") != "a,b,c" {
		t.Fatalf("order = %v", order)
	}
}

// ---------------------------------------------------------------------------
// Tracing
// ---------------------------------------------------------------------------

func TestTracing_NamesSpanByRoute(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	engine := gin.New()
	engine.Use(middleware.CaptureRoute())
	var route string
	engine.GET("/users/:id", func(c *gin.Context) {
		route = middleware.RouteFromContext(c.Request.Context())
		c.Status(http.StatusTeapot)
	})
	handler := middleware.Tracing(tp.Tracer("test"))(engine)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/users/42", http.NoBody))

	if route != "/users/:id" {
		t.Errorf("route in handler context = %q", route)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "GET /users/:id" {
		t.Errorf("span name = %q", spans[0].Name)
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type testClaims struct {
	Subject string
	Role    string
}

func authEngine(validator auth.TokenValidator, checker authz.Checker) *gin.Engine {
	engine := gin.New()
	role := func(c *gin.Context) string {
		claims, _ := authctx.Get[*testClaims](c.Request.Context())
		if claims == nil {
			return ""
		}
		return claims.Role
	}
	group := engine.Group("/", middleware.Auth(validator))
	group.GET("/me", func(c *gin.Context) {
		claims, err := authctx.GetOrError[*testClaims](c.Request.Context())
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.Subject)
	})
	group.GET("/admin", middleware.RequirePermission(checker, "users:admin", role), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func TestAuth(t *testing.T) {
	validator := auth.TokenValidatorFunc(func(token string) (any, error) {
		switch token {
		case "user-token":
			return &testClaims{Subject: "fake@email.com", Role: "user"}, nil
		case "admin-token":
			return &testClaims{Subject: "fakeadmin@email.com", Role: "admin"}, nil
		}
		return nil, errors.New("bad token")
	})
	checker := authz.NewMapChecker(map[string][]string{
		"admin": {"*:*"},
		"user":  {"users:read_self"},
	})
	engine := authEngine(validator, checker)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/me", "Bearer user-token", http.StatusOK},
		{"user on admin route", "/admin", "Bearer user-token", http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer admin-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			engine.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			if tt.want == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Error("401 should carry WWW-Authenticate: Bearer")
			}
		})
	}
}
