// Package main provides the CLI entry point for prepflow.
package main

import (
	"os"

	"github.com/prepflow-labs/prepflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
