// Package testutil provides database fixtures for tests: a throwaway
// database per test binary and a rolled-back transaction per test.
//
// Database derives "<name>_test" from the configured DSN, refuses to start if
// it already exists (ErrDatabaseExists), creates it, applies the schema and
// drops it again on Stop. It works against Postgres (through pgx on the
// "postgres" maintenance database) and against SQLite files.
//
//	func TestMain(m *testing.M) {
//	    db = testutil.New(cfg, nil).WithModels(&users.User{})
//	    mgr := roottestutil.NewManager(context.Background())
//	    mgr.Add(db)
//	    os.Exit(mgr.Run(m.Run))
//	}
//
// Each test then works on an isolated session:
//
//	func TestSignup(t *testing.T) {
//	    session := db.Isolate(t)
//	    store := users.NewStore(session.DB())
//	    // commits inside store restart a savepoint; everything is rolled back
//	    // when the test ends
//	}
//
// On SQLite an isolated session holds the write lock until the test ends,
// so tests that isolate the same database cannot run in parallel.
package testutil
