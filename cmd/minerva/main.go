// Package main provides the entry point for the minerva CLI.
package main

import (
	"os"

	"github.com/michele-orsini-71/minerva/cmd/minerva/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
