package main

import (
	"fmt"
	"os"

	"github.com/stefanpenner/wellspring/pkg/commands"
)

func main() {
	if err := commands.New().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
