// Package logger provides structured logging on top of zerolog.
//
// Fields are passed as maps so call sites stay readable:
//
//	log := logger.New(&cfg, "usersvc").WithComponent("database")
//	log.Info("Database connection established", map[string]interface{}{
//	    "attempt": 1,
//	})
//
// Request-scoped values (request ID, trace ID, user) are carried in the
// context with ContextWith* and picked up by WithContext.
package logger
