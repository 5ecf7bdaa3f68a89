// Command blinkwatch samples eye presence, counts blinks per presence window
// and keeps a rolled-up blink log in SQLite.
package main

import (
	"os"

	"github.com/roach88/blinkwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
