// Package main is the entry point for the paylog CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/paylog/cmd/paylog/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
