package main

import (
	"log"

	"github.com/joho/godotenv"

	"invoiceagent/cmd"
	"invoiceagent/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Until the root command has read the configuration, log with defaults
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cmd.Execute()
}
