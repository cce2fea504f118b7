// Package auth provides the authentication building blocks of the service.
//
// Subpackages:
//
//   - auth/jwt        generic JWT token service
//   - auth/password   password hashing and the login Verifier strategy
//   - auth/authctx    type-safe context propagation for claims
//
// The top-level package holds the shared TokenValidator contract and the
// composed Config loaded from the "auth" section of the service settings.
//
// For authorization (permission checking), see github.com/kbukum/usersvc/authz.
package auth
