package main

import (
	"os"

	"github.com/rl-arena/trivia-arena-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
