// Package apitest runs API tests against a real throwaway database.
//
// A Suite is created once per test binary. It owns the test database (created
// at start, dropped at the end) and one API server. Each test then asks the
// suite for an Env: an isolated, rolled-back session of the test database
// wired into the API for that test only, an in-process HTTP client, and the
// user fixtures.
//
//	var suite *apitest.Suite
//
//	func TestMain(m *testing.M) {
//	    suite = apitest.NewSuite()
//	    os.Exit(suite.Run(m))
//	}
//
//	func TestMe(t *testing.T) {
//	    env := suite.Env(t)
//	    resp := env.Get("/api/v1/users/me", env.UserTokenHeaders())
//	    require.Equal(t, http.StatusOK, resp.StatusCode)
//	}
//
// Environments of one suite share the API's providers, so tests that call
// Env must not run in parallel.
package apitest
