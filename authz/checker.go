package authz

import "strings"

// Checker reports whether subject holds the required permission.
// subject is a role name carried in the token claims.
type Checker interface {
	HasPermission(subject string, permission string) bool
}

// CheckerFunc is an adapter to use ordinary functions as Checker.
type CheckerFunc func(subject string, permission string) bool

// HasPermission implements Checker.
func (f CheckerFunc) HasPermission(subject string, permission string) bool {
	return f(subject, permission)
}

// MapChecker is an in-memory Checker backed by role -> permission patterns.
type MapChecker struct {
	permissions map[string][]string
}

// NewMapChecker creates a Checker from a static map of role -> patterns.
func NewMapChecker(permissions map[string][]string) *MapChecker {
	return &MapChecker{permissions: permissions}
}

// HasPermission implements Checker. Unknown subjects hold nothing.
func (c *MapChecker) HasPermission(subject string, required string) bool {
	return MatchAny(c.permissions[subject], required)
}

// MatchPattern checks a "resource:action" pattern against a required
// permission. Values without ":" are compared as plain strings.
func MatchPattern(pattern, required string) bool {
	if pattern == required || pattern == "*" || pattern == "*:*" {
		return true
	}

	patRes, patAct, patOK := strings.Cut(pattern, ":")
	reqRes, reqAct, reqOK := strings.Cut(required, ":")
	if patOK != reqOK {
		return false
	}
	if !patOK {
		return matchWildcard(pattern, required)
	}
	return matchWildcard(patRes, reqRes) && matchWildcard(patAct, reqAct)
}

// MatchAny returns true if any of the patterns match the required permission.
func MatchAny(patterns []string, required string) bool {
	for _, p := range patterns {
		if MatchPattern(p, required) {
			return true
		}
	}
	return false
}

func matchWildcard(pattern, value string) bool {
	return pattern == "*" || pattern == value
}
