// Package component defines the lifecycle contract shared by the database,
// the HTTP server and the test database.
//
// Components are started in registration order and stopped in reverse, so a
// server registered after the database never outlives it.
package component
