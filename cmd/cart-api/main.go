package main

import (
	"os"

	"github.com/fjod/cart-api/cmd/cart-api/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
