// Package errors provides the application error type shared by the store,
// the service layer and the HTTP handlers.
//
// An AppError carries a machine-readable code, a client-safe message and the
// HTTP status it maps to. Infrastructure errors are wrapped as the Cause and
// never reach the client.
package errors
