// Package main provides the entry point for the kwatch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/kwatch/cmd/kwatch/cmd"
	"github.com/Aman-CERP/kwatch/internal/runner"
)

func main() {
	// Detached reactions re-execute this binary as a short-lived helper.
	runner.MaybeRunDetachHelper()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
