package main

import (
	"os"

	"github.com/link-light/apexquant/cmd/exchangesim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
