// Package users holds the user account model, its GORM store and the
// account service behind login, signup and the admin endpoints.
//
// A Store wraps whatever *gorm.DB it is given: the pool in production, or the
// per-request session in the API, so it is cheap to build per request.
package users
