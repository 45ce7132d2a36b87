package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Expected postgres driver, got %s", cfg.Database.Driver)
	}
	if cfg.MQTT.TopicFieldSamples != "hydro/stations/+/samples" {
		t.Errorf("Unexpected field topic %s", cfg.MQTT.TopicFieldSamples)
	}
	if cfg.Archive.Enabled() {
		t.Error("Expected archive to be disabled without a bucket")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", ":memory:")
	t.Setenv("MAX_RECORDS", "42")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("MQTT_BROKER", "broker.local:1883")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != ":memory:" {
		t.Errorf("Unexpected database config %+v", cfg.Database)
	}
	if cfg.Server.MaxRecords != 42 {
		t.Errorf("Expected 42 max records, got %d", cfg.Server.MaxRecords)
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("Expected 3s read timeout, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.MQTT.BrokerURL != "tcp://broker.local:1883" {
		t.Errorf("Expected tcp prefix, got %s", cfg.MQTT.BrokerURL)
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Error("Expected error for unknown driver")
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hydro.yaml")
	body := `
server:
  port: "9090"
  write_timeout: 20s
database:
  driver: sqlite
  sqlite_path: /tmp/hydro-test.db
archive:
  bucket: ica-archive
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("MQTT_CLIENT_ID", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 20*time.Second {
		t.Errorf("Expected 20s write timeout, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Expected file to override driver, got %s", cfg.Database.Driver)
	}
	if cfg.MQTT.ClientID != "from-env" {
		t.Errorf("Expected env value to survive overlay, got %s", cfg.MQTT.ClientID)
	}
	if !cfg.Archive.Enabled() {
		t.Error("Expected archive to be enabled")
	}
}

func TestLoad_MissingOverlayFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoad_ArchiveSettings(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("ARCHIVE_BUCKET", "ica-archive")
	t.Setenv("ARCHIVE_PATH_STYLE", "true")
	t.Setenv("ARCHIVE_INTERVAL", "6h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !cfg.Archive.Enabled() || !cfg.Archive.PathStyle {
		t.Errorf("Unexpected archive config %+v", cfg.Archive)
	}
	if cfg.Archive.Interval != 6*time.Hour {
		t.Errorf("Expected 6h interval, got %v", cfg.Archive.Interval)
	}

	t.Setenv("ARCHIVE_INTERVAL", "-1m")
	if _, err := Load(); err == nil {
		t.Error("Expected error for negative interval")
	}
}
