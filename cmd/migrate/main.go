package main

import (
	"context"
	"log"
	"os"

	"campuscoin/internal/config"
	"campuscoin/internal/db"
)

// Usage: migrate [up|down|status|redo|reset|version]
func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(context.Background(), database.DB, command); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}
