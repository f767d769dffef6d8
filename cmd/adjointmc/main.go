package main

import (
	"fmt"
	"os"

	"github.com/lukaszgryglicki/adjointmc/internal/observability"
)

func main() {
	err := newRootCmd().Execute()
	observability.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
