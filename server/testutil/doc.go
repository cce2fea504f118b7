// Package testutil provides helpers for exercising a server.Server in tests.
//
// Component serves it through httptest over a loopback socket. NewClient
// serves a handler in process through Transport, with no socket at all:
//
//	client := testutil.NewClient(srv.Handler())
//	resp, err := client.PostForm(ctx, "/api/token", form, nil)
package testutil
