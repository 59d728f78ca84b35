// Command migrate manages the tucano PostgreSQL schema with goose.
//
// It reads DATABASE_URL (a .env file is honored, same as the server) and
// applies the SQL files under migrations/:
//
//	go run ./cmd/migrate up               # apply pending migrations
//	go run ./cmd/migrate down             # roll back one migration
//	go run ./cmd/migrate up-to <version>  # migrate to a specific version
//	go run ./cmd/migrate status           # list applied and pending
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <command> [args]")
		fmt.Println("Commands: up, down, status, version, redo, up-to <version>, down-to <version>")
		os.Exit(1)
	}

	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("Reach database: %v", err)
	}

	command := os.Args[1]
	if err := goose.RunContext(context.Background(), command, db, migrationsDir, os.Args[2:]...); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}
}
