package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbukum/usersvc/api"
	"github.com/kbukum/usersvc/auth/password"
	dbtestutil "github.com/kbukum/usersvc/database/testutil"
	servertestutil "github.com/kbukum/usersvc/server/testutil"
	"github.com/kbukum/usersvc/users"
)

// Fixture credentials. FixtureHash is stored verbatim and is not a real hash,
// so fixture users can only log in through the token helpers.
const (
	UserEmail      = "fake@email.com"
	SuperuserEmail = "fakeadmin@email.com"
	TestPassword   = "securepassword"
	FixtureHash    = "supersecrethash"
)

// Env is the per-test view of a Suite.
type Env struct {
	T       testing.TB
	Suite   *Suite
	Session *dbtestutil.Session
	// DB is the isolated session every request of this test runs on.
	DB     *gorm.DB
	Client *servertestutil.Client

	user      *users.User
	superuser *users.User
}

// Env isolates t on the test database and routes every API request made
// during t through that session. Everything t writes is rolled back when it
// ends.
func (s *Suite) Env(t testing.TB) *Env {
	t.Helper()
	sess := s.DB.Isolate(t)
	restore := s.App.Override(func(p *api.Providers) {
		p.Session = func(ctx context.Context) *gorm.DB {
			return sess.DB().WithContext(ctx)
		}
	})
	t.Cleanup(restore)

	return &Env{
		T:       t,
		Suite:   s,
		Session: sess,
		DB:      sess.DB(),
		Client:  servertestutil.NewClient(s.Handler()),
	}
}

// CreateUser inserts the active, non-superuser fixture user. Repeated calls
// return the same row.
func (e *Env) CreateUser() *users.User {
	e.T.Helper()
	if e.user == nil {
		e.user = e.insertFixture(UserEmail, false)
	}
	return e.user
}

// CreateSuperuser inserts the active superuser fixture. Repeated calls return
// the same row.
func (e *Env) CreateSuperuser() *users.User {
	e.T.Helper()
	if e.superuser == nil {
		e.superuser = e.insertFixture(SuperuserEmail, true)
	}
	return e.superuser
}

func (e *Env) insertFixture(email string, superuser bool) *users.User {
	e.T.Helper()
	u := &users.User{
		Email:          email,
		HashedPassword: FixtureHash,
		IsActive:       true,
		IsSuperuser:    superuser,
	}
	require.NoError(e.T, users.NewStore(e.DB).Create(context.Background(), u))
	return u
}

// UserTokenHeaders logs the fixture user in and returns its bearer header.
func (e *Env) UserTokenHeaders() http.Header {
	e.T.Helper()
	return e.tokenHeaders(e.CreateUser().Email)
}

// SuperuserTokenHeaders logs the superuser fixture in and returns its bearer
// header.
func (e *Env) SuperuserTokenHeaders() http.Header {
	e.T.Helper()
	return e.tokenHeaders(e.CreateSuperuser().Email)
}

// tokenHeaders goes through the real login endpoint. The fixture hash is not
// verifiable, so password checks accept anything for the rest of the test.
func (e *Env) tokenHeaders(email string) http.Header {
	e.T.Helper()
	e.AcceptAnyPassword()

	resp := e.PostForm("/api/token", url.Values{
		"username": {email},
		"password": {TestPassword},
	}, nil)
	require.Equal(e.T, http.StatusOK, resp.StatusCode, "login as %s", email)

	var tok api.Token
	e.Decode(resp, &tok)
	require.NotEmpty(e.T, tok.AccessToken)
	return http.Header{"Authorization": {"Bearer " + tok.AccessToken}}
}

// AcceptAnyPassword makes every password check succeed until the test ends.
func (e *Env) AcceptAnyPassword() {
	restore := e.Suite.App.Override(func(p *api.Providers) { p.Verifier = password.AcceptAny })
	e.T.Cleanup(restore)
}

// HeaderMap flattens h to its first value per key.
func HeaderMap(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			m[k] = vs[0]
		}
	}
	return m
}

// Do sends a request and fails the test on transport errors. The response
// body is closed when the test ends.
func (e *Env) Do(method, path string, body io.Reader, header http.Header) *http.Response {
	e.T.Helper()
	resp, err := e.Client.Do(context.Background(), method, path, body, header)
	require.NoError(e.T, err)
	e.T.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// Get sends a GET request.
func (e *Env) Get(path string, header http.Header) *http.Response {
	e.T.Helper()
	return e.Do(http.MethodGet, path, nil, header)
}

// PostForm sends form-encoded values.
func (e *Env) PostForm(path string, form url.Values, header http.Header) *http.Response {
	e.T.Helper()
	resp, err := e.Client.PostForm(context.Background(), path, form, header)
	require.NoError(e.T, err)
	e.T.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// JSON sends v encoded as JSON.
func (e *Env) JSON(method, path string, v interface{}, header http.Header) *http.Response {
	e.T.Helper()
	body, err := json.Marshal(v)
	require.NoError(e.T, err)
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")
	return e.Do(method, path, bytes.NewReader(body), h)
}

// Decode reads a JSON response body into v.
func (e *Env) Decode(resp *http.Response, v interface{}) {
	e.T.Helper()
	require.NoError(e.T, json.NewDecoder(resp.Body).Decode(v))
}
