package main

import (
	"os"

	"github.com/relsync/relsync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
