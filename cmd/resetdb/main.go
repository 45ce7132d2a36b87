package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/rpereza/hydro-back-sub001/config"
	"github.com/rpereza/hydro-back-sub001/internal/database"
)

// Drops every monitoring table and recreates an empty schema.
func main() {
	force := flag.Bool("force", false, "Confirm that all stored monitorings will be deleted")
	flag.Parse()

	if !*force {
		log.Println("⚠️  This deletes every stored field and discharge monitoring.")
		log.Println("   Re-run with -force to continue.")
		os.Exit(1)
	}

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	log.Println("🔄 Connecting to database...")
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect: %v", err)
	}
	defer db.Close()

	log.Println("🗑️  Dropping all tables...")
	if err := database.DropTables(db); err != nil {
		log.Fatalf("❌ Failed to drop tables: %v", err)
	}

	if err := database.CreateTables(db); err != nil {
		log.Fatalf("❌ Failed to recreate tables: %v", err)
	}
	if err := database.CheckTablesExist(db); err != nil {
		log.Fatalf("❌ Table check failed: %v", err)
	}

	log.Println("")
	log.Println("✅ Database reset complete!")
}
