package main

import (
	"time"

	"github.com/rs/zerolog"

	"example.com/florahub/services/plants/cmd"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339

	cmd.Execute()
}
