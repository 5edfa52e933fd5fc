package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/assignhub/assignment-ai/internal/database"
	"github.com/assignhub/assignment-ai/internal/store"
)

func main() {
	config := store.PostgresConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		Database: getEnv("DB_NAME", "assignment_ai"),
		Username: getEnv("DB_USER", "assignhub"),
		Password: getEnv("DB_PASSWORD", "changeme"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	fmt.Println("=== Running Database Migrations ===")
	fmt.Printf("Connecting to database: %s@%s:%s/%s\n", config.Username, config.Host, config.Port, config.Database)

	if err := database.VerifyConnectivity(dsn, config.Database); err != nil {
		log.Fatalf("Database connectivity failed: %v", err)
	}
	fmt.Println("✓ Database connectivity verified")

	databaseURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		config.Username, config.Password, config.Host, config.Port, config.Database, config.SSLMode)

	version, err := database.RunMigrations(database.MigrationConfig{
		DatabaseURL:    databaseURL,
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
	})
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Printf("✓ Schema migrated to version %d\n", version)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to reconnect for schema verification: %v", err)
	}
	defer db.Close()

	if err := database.VerifySchema(db); err != nil {
		log.Fatalf("Schema verification failed: %v", err)
	}
	fmt.Println("✓ Schema verified (pgvector installed, assignments queryable)")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
