package main

import (
	"os"

	"github.com/MeKo-Tech/silkgen/cmd/silkgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
