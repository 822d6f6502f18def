package main

import (
	"github.com/joho/godotenv"

	"fx-arb-watch/internal/cli"
)

func main() {
	// Best effort; absent .env files are fine.
	_ = godotenv.Load()

	cli.Execute()
}
