package main

import (
	"os"

	"github.com/km-arc/go-bootstrap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
