package main

import (
	"os"

	"quiz-pipeline-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
