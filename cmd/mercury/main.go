package main

import (
	"os"

	"github.com/mercury-net/mercury/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
