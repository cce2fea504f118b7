// Package endpoint provides the operational HTTP handlers mounted by every
// service: /health, /alive, /ready and /info.
package endpoint
