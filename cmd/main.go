package main

import (
	"log"

	"servopanel/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.Fatalf("error during command execution: %v", err)
	}
}
