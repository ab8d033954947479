package main

import (
	"errors"
	"log"
	"os"

	"lapra-tech/backend/internal/config"
	"lapra-tech/backend/internal/db/migrate"
)

// Usage: migrate [up|down]. Defaults to up. DSN comes from DATABASE_URL.
func main() {
	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := migrate.Run(cfg.DatabaseURL, direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("migrations: no change")
			return
		}
		log.Fatalf("migrate %s: %v", direction, err)
	}
	log.Printf("migrations applied (%s)", direction)
}
