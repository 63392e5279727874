package main

import (
	"os"

	"github.com/quantrio/traderd/cmd/traderd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
