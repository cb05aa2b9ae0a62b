package main

import (
	"os"

	"github.com/lendlens/lendlens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
