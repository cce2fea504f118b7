package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/usersvc/api"
	"github.com/kbukum/usersvc/api/apitest"
	apperrors "github.com/kbukum/usersvc/errors"
	"github.com/kbukum/usersvc/users"
)

var suite *apitest.Suite

func TestMain(m *testing.M) {
	suite = apitest.NewSuite()
	os.Exit(suite.Run(m))
}

type userBody struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

func errorCode(t *testing.T, env *apitest.Env, resp *http.Response) apperrors.ErrorCode {
	t.Helper()
	var body apperrors.ErrorResponse
	env.Decode(resp, &body)
	return body.Error.Code
}

// signUp registers an account with a real hash so it can log in without the
// password bypass.
func signUp(t *testing.T, env *apitest.Env, email string) api.Token {
	t.Helper()
	resp := env.PostForm("/api/signup", url.Values{
		"username": {email},
		"password": {apitest.TestPassword},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tok api.Token
	env.Decode(resp, &tok)
	return tok
}

func TestRoot(t *testing.T) {
	env := suite.Env(t)
	resp := env.Get("/api", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	env.Decode(resp, &body)
	assert.Equal(t, "Hello World", body["message"])
}

func TestSignUpAndLogin(t *testing.T) {
	env := suite.Env(t)
	tok := signUp(t, env, "New@Email.com ")
	assert.Equal(t, "bearer", tok.TokenType)
	assert.NotEmpty(t, tok.AccessToken)

	resp := env.PostForm("/api/token", url.Values{
		"username": {"new@email.com"},
		"password": {apitest.TestPassword},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.PostForm("/api/token", url.Values{
		"username": {"new@email.com"},
		"password": {"wrongpassword"},
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
}

func TestSignUp_Duplicate(t *testing.T) {
	env := suite.Env(t)
	signUp(t, env, "dup@email.com")

	resp := env.PostForm("/api/signup", url.Values{
		"username": {"dup@email.com"},
		"password": {apitest.TestPassword},
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperrors.ErrCodeAlreadyExists, errorCode(t, env, resp))
}

func TestSignUp_ShortPassword(t *testing.T) {
	env := suite.Env(t)
	resp := env.PostForm("/api/signup", url.Values{
		"username": {"short@email.com"},
		"password": {"short"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name   string
		form   url.Values
		status int
	}{
		{"unknown user", url.Values{"username": {"nobody@email.com"}, "password": {apitest.TestPassword}}, http.StatusUnauthorized},
		{"missing password", url.Values{"username": {"nobody@email.com"}}, http.StatusBadRequest},
		{"empty form", url.Values{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := suite.Env(t)
			resp := env.PostForm("/api/token", tt.form, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	env := suite.Env(t)
	u := env.CreateUser()
	u.IsActive = false
	require.NoError(t, users.NewStore(env.DB).Update(context.Background(), u))
	env.AcceptAnyPassword()

	resp := env.PostForm("/api/token", url.Values{
		"username": {u.Email},
		"password": {apitest.TestPassword},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperrors.ErrCodeInactiveUser, errorCode(t, env, resp))
}

func TestMe(t *testing.T) {
	env := suite.Env(t)
	resp := env.Get("/api/v1/users/me", env.UserTokenHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me userBody
	env.Decode(resp, &me)
	assert.Equal(t, apitest.UserEmail, me.Email)
	assert.True(t, me.IsActive)
}

func TestMe_Unauthenticated(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
	}{
		{"no header", nil},
		{"not bearer", http.Header{"Authorization": {"Basic Zm9vOmJhcg=="}}},
		{"garbage token", http.Header{"Authorization": {"Bearer not-a-token"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := suite.Env(t)
			resp := env.Get("/api/v1/users/me", tt.header)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		})
	}
}

func TestMe_DeletedUser(t *testing.T) {
	env := suite.Env(t)
	headers := env.UserTokenHeaders()
	require.NoError(t, users.NewStore(env.DB).Delete(context.Background(), env.CreateUser().ID))

	resp := env.Get("/api/v1/users/me", headers)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe_DeactivatedUser(t *testing.T) {
	env := suite.Env(t)
	headers := env.UserTokenHeaders()
	u := env.CreateUser()
	u.IsActive = false
	require.NoError(t, users.NewStore(env.DB).Update(context.Background(), u))

	resp := env.Get("/api/v1/users/me", headers)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoutes_ForbiddenForUsers(t *testing.T) {
	env := suite.Env(t)
	headers := env.UserTokenHeaders()
	id := env.CreateUser().ID

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodPost, "/api/v1/users"},
		{http.MethodGet, fmt.Sprintf("/api/v1/users/%d", id)},
		{http.MethodPut, fmt.Sprintf("/api/v1/users/%d", id)},
		{http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", id)},
	} {
		resp := env.JSON(req.method, req.path, map[string]string{}, headers)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "%s %s", req.method, req.path)
	}
}

func TestListUsers(t *testing.T) {
	env := suite.Env(t)
	headers := env.SuperuserTokenHeaders()
	env.CreateUser()
	signUp(t, env, "third@email.com")

	resp := env.Get("/api/v1/users?limit=2&sortBy=email&order=asc", headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "users 0-1/3", resp.Header.Get("Content-Range"))

	var page []userBody
	env.Decode(resp, &page)
	require.Len(t, page, 2)
	assert.Equal(t, apitest.UserEmail, page[0].Email)
	assert.Equal(t, apitest.SuperuserEmail, page[1].Email)
}

func TestListUsers_EmptyPage(t *testing.T) {
	env := suite.Env(t)
	headers := env.SuperuserTokenHeaders()

	resp := env.Get("/api/v1/users?skip=10", headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page []userBody
	env.Decode(resp, &page)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestCreateGetUpdateDeleteUser(t *testing.T) {
	env := suite.Env(t)
	headers := env.SuperuserTokenHeaders()

	resp := env.JSON(http.MethodPost, "/api/v1/users", map[string]interface{}{
		"email":      "created@email.com",
		"password":   apitest.TestPassword,
		"first_name": "Ada",
	}, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created userBody
	env.Decode(resp, &created)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)
	path := fmt.Sprintf("/api/v1/users/%d", created.ID)

	resp = env.Get(path, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got userBody
	env.Decode(resp, &got)
	assert.Equal(t, created, got)

	resp = env.JSON(http.MethodPut, path, map[string]interface{}{
		"first_name":   "Grace",
		"is_superuser": true,
	}, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated userBody
	env.Decode(resp, &updated)
	assert.Equal(t, "Grace", updated.FirstName)
	assert.True(t, updated.IsSuperuser)
	assert.Equal(t, "created@email.com", updated.Email)

	resp = env.Do(http.MethodDelete, path, nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted userBody
	env.Decode(resp, &deleted)
	assert.Equal(t, created.ID, deleted.ID)

	resp = env.Get(path, headers)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateUser_ChangesPassword(t *testing.T) {
	env := suite.Env(t)
	headers := env.SuperuserTokenHeaders()
	u := env.CreateUser()

	resp := env.JSON(http.MethodPut, fmt.Sprintf("/api/v1/users/%d", u.ID), map[string]string{
		"password": "anotherpassword",
	}, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := users.NewStore(env.DB).Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, apitest.FixtureHash, stored.HashedPassword)
	assert.NoError(t, suite.App.Hasher().Verify("anotherpassword", stored.HashedPassword))
}

func TestUserRoutes_Errors(t *testing.T) {
	env := suite.Env(t)
	headers := env.SuperuserTokenHeaders()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"get missing", http.MethodGet, "/api/v1/users/9999", nil, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/v1/users/9999", nil, http.StatusNotFound},
		{"update missing", http.MethodPut, "/api/v1/users/9999", map[string]string{"first_name": "x"}, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/users/abc", nil, http.StatusBadRequest},
		{"zero id", http.MethodGet, "/api/v1/users/0", nil, http.StatusBadRequest},
		{"create without email", http.MethodPost, "/api/v1/users", map[string]string{"password": apitest.TestPassword}, http.StatusBadRequest},
		{"create bad email", http.MethodPost, "/api/v1/users", map[string]string{"email": "nope", "password": apitest.TestPassword}, http.StatusBadRequest},
		{"create duplicate", http.MethodPost, "/api/v1/users", map[string]string{"email": apitest.SuperuserEmail, "password": apitest.TestPassword}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.body == nil {
				resp = env.Do(tt.method, tt.path, nil, headers)
			} else {
				resp = env.JSON(tt.method, tt.path, tt.body, headers)
			}
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestValidationError_NamesFields(t *testing.T) {
	env := suite.Env(t)
	resp := env.JSON(http.MethodPost, "/api/v1/users", map[string]string{}, env.SuperuserTokenHeaders())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body apperrors.ErrorResponse
	env.Decode(resp, &body)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, body.Error.Code)
	assert.Contains(t, body.Error.Details, "email")
	assert.Contains(t, body.Error.Details, "password")
}

func TestResponses_CarryRequestID(t *testing.T) {
	env := suite.Env(t)
	resp := env.Get("/api", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
