package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"visitor-counter/pkg/database"
)

const usage = "Usage: go run ./cmd/migrate [up|drop|status]"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "up":
		if err := database.CreateSchema(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ Snapshot tables created successfully")

	case "drop":
		if err := database.DropSchema(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ Snapshot tables dropped successfully")

	case "status":
		if err := printStatus(ctx, conn); err != nil {
			log.Fatalf("Failed to read snapshot status: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func printStatus(ctx context.Context, conn *pgx.Conn) error {
	var (
		count  int64
		latest *time.Time
	)

	err := conn.QueryRow(ctx, `SELECT COUNT(*), MAX(snapshot_date) FROM visitor_snapshots`).Scan(&count, &latest)
	if err != nil {
		return fmt.Errorf("failed to query visitor_snapshots: %w", err)
	}

	fmt.Printf("  Snapshots: %d\n", count)
	if latest != nil {
		fmt.Printf("  Latest:    %s\n", latest.Format("2006-01-02"))
	}
	return nil
}
