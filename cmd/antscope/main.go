// Package main provides the antscope CLI for static analysis of Ant build files.
package main

import (
	"os"

	"github.com/leapstack-labs/antscope/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
