// Package testutil runs test-only infrastructure (a throwaway database, an
// in-process server) through the same Start/Stop lifecycle as production
// components.
//
// A Manager brackets the whole test binary from TestMain; T binds a single
// component to one test.
package testutil
