// Package main is the entry point for the p4calc test harness.
package main

import (
	"errors"
	"fmt"
	"os"

	"firestige.xyz/p4calc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrSessionFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
