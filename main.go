package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"crosswap/cmd"
)

func main() {
	// Optional; configuration can also come from the environment directly.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
