package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/rpereza/hydro-back-sub001/config"
)

// Dialect identifies the SQL flavour behind a connection
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB holds the database connection
type DB struct {
	*sqlx.DB
	Dialect Dialect
}

// Connect establishes a connection to PostgreSQL or SQLite depending on cfg.Driver
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	dialect, dsn := resolveDSN(cfg)

	db, err := sqlx.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	if dialect == SQLite {
		// A :memory: database lives in a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
	}

	log.Printf("✅ Successfully connected to %s database", dialect)

	return &DB{DB: db, Dialect: dialect}, nil
}

func resolveDSN(cfg config.DatabaseConfig) (Dialect, string) {
	if cfg.Driver == string(SQLite) {
		log.Printf("Opening SQLite database at %s", cfg.SQLitePath)
		return SQLite, cfg.SQLitePath
	}

	// Check if DATABASE_URL is provided (e.g., from Render.com)
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		log.Println("Using DATABASE_URL from environment")
		return Postgres, databaseURL
	}

	log.Printf("Connecting to database at %s:%s/%s", cfg.Host, cfg.Port, cfg.DBName)
	return Postgres, BuildConnectionString(cfg)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

// BuildConnectionString builds a PostgreSQL connection string
func BuildConnectionString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}
