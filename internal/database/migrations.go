package database

import (
	"fmt"
	"log"
)

var requiredTables = []string{
	"field_monitorings",
	"discharge_monitorings",
}

// columnTypes holds the per-dialect spelling of the column types used by the schema
type columnTypes struct {
	id        string
	timestamp string
	raw       string // raw measurements and the N/P ratio, unbounded, quantized to 3 places
	index     string // sub-indices, 3 fractional digits
	composite string // composite coefficient, 2 fractional digits
	// SQLite compares TEXT decimals lexically, so range checks only run on Postgres
	compositeCheck string
}

func typesFor(dialect Dialect) columnTypes {
	if dialect == SQLite {
		return columnTypes{
			id:        "INTEGER PRIMARY KEY AUTOINCREMENT",
			timestamp: "DATETIME",
			raw:       "TEXT",
			index:     "TEXT",
			composite: "TEXT",
		}
	}
	return columnTypes{
		id:             "SERIAL PRIMARY KEY",
		timestamp:      "TIMESTAMP WITH TIME ZONE",
		raw:            "NUMERIC",
		index:          "NUMERIC(14,3)",
		composite:      "NUMERIC(5,2)",
		compositeCheck: "CHECK (ica >= 0 AND ica <= 1)",
	}
}

// indexColumns are the derived ICA columns shared by both monitoring tables
func indexColumns(t columnTypes) string {
	return fmt.Sprintf(`
		iod %[1]s NOT NULL,
		isst %[1]s NOT NULL,
		idqo %[1]s NOT NULL,
		ice %[1]s NOT NULL,
		iph %[1]s NOT NULL,
		rnp %[4]s,
		inp %[1]s,
		variable_count SMALLINT NOT NULL CHECK (variable_count IN (5, 6)),
		ica %[2]s NOT NULL %[3]s,
		quality_class VARCHAR(20) NOT NULL
			CHECK (quality_class IN ('VERY_POOR', 'POOR', 'FAIR', 'ACCEPTABLE', 'GOOD')),`,
		t.index, t.composite, t.compositeCheck, t.raw)
}

// CreateTables creates all necessary tables for the monitoring system
func CreateTables(db *DB) error {
	log.Println("Creating database tables...")
	t := typesFor(db.Dialect)

	// field_monitorings - samples taken at river monitoring stations
	fieldTable := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS field_monitorings (
		id %[1]s,
		station_id VARCHAR(100) NOT NULL,
		sampled_at %[2]s NOT NULL,
		od %[3]s NOT NULL,
		sst %[3]s NOT NULL,
		dqo %[3]s NOT NULL,
		ce %[3]s NOT NULL,
		ph %[3]s NOT NULL,
		n %[3]s,
		p %[3]s,%[4]s
		created_at %[2]s NOT NULL
	);`, t.id, t.timestamp, t.raw, indexColumns(t))

	if _, err := db.Exec(fieldTable); err != nil {
		return fmt.Errorf("failed to create field_monitorings table: %w", err)
	}

	// discharge_monitorings - samples taken at permitted discharge points
	dischargeTable := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS discharge_monitorings (
		id %[1]s,
		discharge_point_id VARCHAR(100) NOT NULL,
		permit_number VARCHAR(100) NOT NULL DEFAULT '',
		campaign_year INTEGER NOT NULL,
		sampled_at %[2]s NOT NULL,
		flow_rate %[3]s,
		od %[3]s NOT NULL,
		sst %[3]s NOT NULL,
		dqo %[3]s NOT NULL,
		ce %[3]s NOT NULL,
		ph %[3]s NOT NULL,
		n %[3]s,
		p %[3]s,%[4]s
		created_at %[2]s NOT NULL
	);`, t.id, t.timestamp, t.raw, indexColumns(t))

	if _, err := db.Exec(dischargeTable); err != nil {
		return fmt.Errorf("failed to create discharge_monitorings table: %w", err)
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_field_monitorings_sampled_at ON field_monitorings(sampled_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_field_monitorings_station ON field_monitorings(station_id);",
		"CREATE INDEX IF NOT EXISTS idx_field_monitorings_quality ON field_monitorings(quality_class);",
		"CREATE INDEX IF NOT EXISTS idx_field_monitorings_created_at ON field_monitorings(created_at);",
		"CREATE INDEX IF NOT EXISTS idx_discharge_monitorings_sampled_at ON discharge_monitorings(sampled_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_discharge_monitorings_point ON discharge_monitorings(discharge_point_id);",
		"CREATE INDEX IF NOT EXISTS idx_discharge_monitorings_created_at ON discharge_monitorings(created_at);",
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			log.Printf("⚠️  Warning: Failed to create index: %v", err)
		}
	}

	log.Println("✅ Database tables created successfully")
	return nil
}

// DropTables drops all tables (useful for testing)
func DropTables(db *DB) error {
	log.Println("Dropping database tables...")

	cascade := " CASCADE"
	if db.Dialect == SQLite {
		cascade = ""
	}

	for _, table := range requiredTables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s%s;", table, cascade)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	log.Println("✅ Database tables dropped successfully")
	return nil
}

// CheckTablesExist checks if all required tables exist
func CheckTablesExist(db *DB) error {
	query := `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_name = $1
	);`
	if db.Dialect == SQLite {
		query = `SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = ?;`
	}

	for _, table := range requiredTables {
		var exists bool
		if err := db.QueryRow(query, table).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}

		if !exists {
			return fmt.Errorf("table %s does not exist", table)
		}
	}

	log.Println("✅ All required tables exist")
	return nil
}
