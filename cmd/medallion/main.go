// Package main provides the CLI for the Medallion data pipeline.
package main

import (
	"os"

	"github.com/leapstack-labs/medallion/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
