package main

import (
	"os"

	"github.com/pcstyle/termsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
