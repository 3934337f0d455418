package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/drishan/rides-insights/internal/database"
	"github.com/drishan/rides-insights/internal/loader"
	"github.com/drishan/rides-insights/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	defaultDB := os.Getenv("DB_PATH")
	if defaultDB == "" {
		defaultDB = "ola_rides.db"
	}

	inputPath := flag.String("input", "", "path to the bookings CSV dataset")
	dbPath := flag.String("db", defaultDB, "path to the SQLite store")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("-input is required")
	}

	db, err := database.InitDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rows, err := loader.Load(db, *inputPath)
	if err != nil {
		log.Fatalf("Load failed, previous store content kept: %v", err)
	}

	if err := database.CreateViews(db, database.ViewConfigFromEnv()); err != nil {
		log.Fatalf("Failed to register views: %v", err)
	}

	// Notify running API instances; skipped when Redis is not available.
	if err := services.InitRedis(); err != nil {
		log.Printf("Redis unavailable, skipping reload notification: %v", err)
	} else if err := services.PublishStoreReload(context.Background(), rows); err != nil {
		log.Printf("Failed to publish reload notification: %v", err)
	}

	log.Printf("Loaded %d bookings into %s", rows, *dbPath)
}
