package main

import (
	"log"
	"os"

	"group-quiz-bot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}
