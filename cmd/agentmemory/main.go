// Package main provides the entry point for the agentmemory CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/agentmemory/cmd/agentmemory/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
