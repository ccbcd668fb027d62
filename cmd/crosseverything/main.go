// Package main provides the entry point for the crosseverything CLI.
package main

import (
	"os"

	"github.com/crosseverything/crosseverything/cmd/crosseverything/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
