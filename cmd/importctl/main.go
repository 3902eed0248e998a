// Package main точка входа importctl.
package main

import (
	"fmt"
	"os"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
