// Package api is the HTTP surface of the service: login and signup under
// /api, the current user and the superuser-only user administration under
// /api/v1/users.
//
// Handlers never reach for globals. Each request gets a Scope built from the
// App's Providers (database session and password verifier) at the moment it
// arrives. Override swaps providers for the lifetime of a test.
package api
