package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/delordemm1/go-identity-core/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"    // PostgreSQL driver
	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
	"github.com/pressly/goose/v3"
)

const usage = "usage: migrate [up|up-to N|down|down-to N|status|version]"

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("❌ DATABASE_URL environment variable is not set")
	}
	if len(os.Args) < 2 {
		log.Fatalf("❌ Missing command. %s", usage)
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("❌ Failed to open database connection: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("❌ Failed to ping database: %v", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		log.Fatalf("❌ Failed to load migrations: %v", err)
	}

	if err := run(ctx, provider, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("❌ %s failed: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, p *goose.Provider, command string, args []string) error {
	switch command {
	case "up":
		results, err := p.Up(ctx)
		logResults(results...)
		return err
	case "up-to", "down-to":
		if len(args) != 1 {
			return fmt.Errorf("missing target version. %s", usage)
		}
		version, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		var results []*goose.MigrationResult
		if command == "up-to" {
			results, err = p.UpTo(ctx, version)
		} else {
			results, err = p.DownTo(ctx, version)
		}
		logResults(results...)
		return err
	case "down":
		result, err := p.Down(ctx)
		if result != nil {
			logResults(result)
		}
		return err
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			log.Printf("%-40s %s", s.Source.Path, applied)
		}
		return nil
	case "version":
		version, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		log.Printf("database version: %d", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q. %s", command, usage)
	}
}

func logResults(results ...*goose.MigrationResult) {
	if len(results) == 0 {
		log.Println("✅ No migrations to run")
		return
	}
	for _, r := range results {
		log.Printf("✅ %s", r)
	}
}
