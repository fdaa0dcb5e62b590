package main

import (
	"fmt"
	"log"

	"cadence/internal/config"
	"cadence/internal/database"
	"cadence/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	fmt.Println("Connecting to database...")
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	st := store.New(db)

	fmt.Println("Creating tables...")
	if err := st.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	fmt.Println("Database initialized successfully")
}
