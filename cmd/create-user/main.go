package main

// Create a local account and print a session token:
//   go run ./cmd/create-user --username ada --password s3cret

import (
	"os"

	"verisight-backend/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
