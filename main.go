package main

import (
	"os"

	"github.com/nicolad/nomadically.work/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
