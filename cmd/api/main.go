package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/drishan/rides-insights/internal/database"
	"github.com/drishan/rides-insights/internal/handlers"
	"github.com/drishan/rides-insights/internal/middleware"
	"github.com/drishan/rides-insights/internal/query"
	"github.com/drishan/rides-insights/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "ola_rides.db"
	}

	// The API serves an already-loaded store; run the loader first.
	db, err := database.OpenExisting(dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	// Readers only from here on; concurrent dashboards are safe because
	// the table is immutable between loads.
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Redis is optional: without it the dropdown cache and reload
	// notifications are skipped.
	if err := services.InitRedis(); err != nil {
		log.Printf("Redis unavailable, running without cache: %v", err)
	}

	// Initialize Storage (S3 or local fallback) for CSV exports
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Forward loader reload notifications to connected dashboards
	services.SubscribeStoreReloads(context.Background(), func(reload services.StoreReload) {
		hub.BroadcastStoreReload(reload)
	})

	runner := query.NewRunner(db)

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))
	r.Use(middleware.RequestLogger())

	// Serve locally exported CSVs
	if dir := services.ExportDir(); dir != "" {
		r.Static("/exports", dir)
	}

	// Routes
	api := r.Group("/api")
	{
		api.GET("/health", handlers.Health(db, hub))

		// WebSocket connection for reload notifications
		api.GET("/ws", handlers.WebSocketHandler(hub))

		bookings := api.Group("/bookings")
		{
			bookings.GET("", handlers.GetBookings(runner))
			bookings.GET("/summary", handlers.GetBookingsSummary(db))
		}

		api.GET("/filters/:column", handlers.GetDistinctValues(runner))

		views := api.Group("/views")
		{
			views.GET("", handlers.ListViews(db))
			views.GET("/:name", handlers.GetView(runner))
		}

		api.POST("/query", handlers.RunQuery(runner))
		api.POST("/export", handlers.ExportBookings(runner))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
