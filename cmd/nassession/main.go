// Package main provides the nassession command line client.
//
// nassession signs in to a storage appliance, keeps the session token
// between runs and serves the sign-in state to local UIs.
package main

import (
	"os"

	"github.com/yaroslav/nassession/cmd/nassession/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
