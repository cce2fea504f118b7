// Command usersvc runs the user account service and its maintenance tasks.
//
//	usersvc serve
//	usersvc migrate up
//	usersvc create-superuser --email admin@example.com --password ...
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
