// Package main is the entry point for the leaplint CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leaplint/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
