// Package authz checks permissions of the form "resource:action".
//
// Patterns may use "*" on either side: "*:*" grants everything and
// "users:*" grants every action on users.
//
//	checker := authz.NewMapChecker(map[string][]string{
//	    "admin": {"*:*"},
//	    "user":  {"users:read_self"},
//	})
//	checker.HasPermission("user", "users:admin") // false
package authz
