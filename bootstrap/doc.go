// Package bootstrap orchestrates the application lifecycle.
//
// An App owns a typed configuration, a component registry and lifecycle
// hooks. Run starts every component in registration order, blocks until
// SIGINT/SIGTERM or context cancellation, then stops them in reverse order.
// RunTask does the same around a finite task such as create-superuser.
//
//	app, err := bootstrap.NewApp(&settings)
//	app.RegisterComponent(dbComponent)
//	app.RegisterComponent(server.NewComponent(srv))
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
