package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/radieske/wager-pipeline-poc/internal/shared/config"
	"github.com/radieske/wager-pipeline-poc/internal/shared/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	target := flag.String("target", db.TargetLedger, "migration target: ledger | analytics")
	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		fmt.Println("Error: migration command is required")
		fmt.Println("Usage: go run ./cmd/migrate -target ledger|analytics [command]")
		fmt.Println("Commands: up, down, status, redo")
		os.Exit(1)
	}
	command := args[0]

	// Ledger usa o driver pgx; analytics usa o driver ClickHouse registrado em shared/db
	driver, dsn := "pgx", cfg.PostgresDSN
	if *target == db.TargetAnalytics {
		driver, dsn = string(db.FlavorClickHouse), cfg.AnalyticsDSN
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		log.Fatalf("Open %s: %v", driver, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Printf("Starting migration: %s %s", *target, command)

	if err := db.RunMigrations(ctx, conn, *target, command); err != nil {
		log.Fatalf("Migration error: %v", err)
	}

	fmt.Println("Migration finished successfully")
}
