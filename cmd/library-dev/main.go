package main

import (
	"context"
	"fmt"
	"log"
	"os"

	postgresTC "github.com/testcontainers/testcontainers-go/modules/postgres"

	"library-catalog/internal/app"
)

func main() {
	ctx := context.Background()

	log.Println("Starting PostgreSQL testcontainer...")

	// Start PostgreSQL container
	postgresContainer, err := postgresTC.Run(ctx,
		"postgres:16-alpine",
		postgresTC.WithDatabase("library_db"),
		postgresTC.WithUsername("postgres"),
		postgresTC.WithPassword("devpassword"),
		postgresTC.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	// Ensure container cleanup on exit
	defer func() {
		log.Println("Stopping PostgreSQL container...")
		if err := postgresContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	// Get connection details
	host, err := postgresContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("Failed to get container port: %v", err)
	}

	log.Printf("PostgreSQL started at %s:%s", host, port.Port())

	// Set environment variables for the application
	os.Setenv("POSTGRES_HOST", host)
	os.Setenv("POSTGRES_PORT", port.Port())
	os.Setenv("POSTGRES_DATABASE", "library_db")
	os.Setenv("POSTGRES_USER", "postgres")
	os.Setenv("POSTGRES_PASSWORD", "devpassword")
	os.Setenv("POSTGRES_SSLMODE", "disable")
	os.Setenv("USE_MOCK_DB", "false")
	os.Setenv("WEBHOOK_MODE", "false")

	if os.Getenv("APP_ENV") == "" {
		os.Setenv("APP_ENV", "development")
	}

	if os.Getenv("TELEGRAM_BOT_TOKEN") == "" {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN not set. Only the web front-end will be available.")
	}

	log.Println("Starting application with PostgreSQL backend...")
	fmt.Println()

	// Create and initialize application
	application, err := app.New()
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	// Run blocks until SIGINT/SIGTERM, then the deferred cleanup runs
	if err := application.Run(); err != nil {
		log.Printf("Application error: %v", err)
	}
}
