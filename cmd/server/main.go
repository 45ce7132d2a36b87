package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rpereza/hydro-back-sub001/config"
	"github.com/rpereza/hydro-back-sub001/internal/archive"
	"github.com/rpereza/hydro-back-sub001/internal/database"
	httphandlers "github.com/rpereza/hydro-back-sub001/internal/http"
	"github.com/rpereza/hydro-back-sub001/internal/metrics"
	"github.com/rpereza/hydro-back-sub001/internal/mqtt"
	"github.com/rpereza/hydro-back-sub001/internal/services"
	"github.com/rpereza/hydro-back-sub001/internal/store"
	"github.com/rpereza/hydro-back-sub001/internal/ws"
)

func main() {
	log.Println("🌊 Starting Hydro Water Quality Index Backend...")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found: %v", err)
	} else {
		log.Println("✅ Loaded .env file")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("📋 Loaded configuration: Server port=%s, DB driver=%s",
		cfg.Server.Port, cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)

	// Initialize data store with the configured database or fallback to in-memory
	var dataStore store.DataStore

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Printf("⚠️  Warning: Failed to connect to database: %v", err)
		log.Println("📱 Falling back to in-memory storage")
		dataStore = store.NewStore(cfg.Server.MaxRecords)
		log.Println("💾 Initialized in-memory data store")
	} else {
		defer db.Close()

		if err := database.CreateTables(db); err != nil {
			log.Fatalf("❌ Failed to create tables: %v", err)
		}

		dataStore = database.NewDatabaseStore(db)
		log.Printf("💾 Initialized database data store with %s", db.Dialect)
	}

	service := services.NewMonitoringService(dataStore, collector)

	// Initialize WebSocket hub
	wsHub := ws.NewHub(collector)
	go wsHub.Run(ctx)
	service.AddNotifier(wsHub)
	log.Println("🔌 Started WebSocket hub")

	// Initialize report archive (optional)
	var uploader archive.Uploader
	if cfg.Archive.Enabled() {
		s3Archive, err := archive.NewS3Archive(ctx, cfg.Archive)
		if err != nil {
			log.Printf("⚠️  Warning: Failed to initialize report archive: %v", err)
		} else {
			uploader = s3Archive
			log.Printf("💾 Archiving reports to s3://%s/%s", s3Archive.Bucket(), cfg.Archive.Prefix)
		}
	} else {
		log.Println("💾 Report archive not configured, skipping")
	}
	reports := services.NewReportService(dataStore, uploader, collector)

	var scheduler *services.Scheduler
	if uploader != nil && cfg.Archive.Interval > 0 {
		scheduler = services.NewScheduler(reports, cfg.Archive.Interval)
		scheduler.Start()
	}

	handlers := httphandlers.NewHandlers(service, reports, wsHub)

	// Initialize MQTT client
	if cfg.MQTT.Enabled {
		mqttClient := mqtt.NewClient(cfg.MQTT, service, collector)
		mqttClient.SetErrorHandler(func(err error) {
			wsHub.BroadcastError(err.Error())
		})

		if err := mqttClient.Connect(); err != nil {
			log.Printf("⚠️  Warning: %v", err)
			log.Println("📡 Continuing without MQTT support")
		} else if err := mqttClient.SubscribeToSamples(); err != nil {
			log.Printf("⚠️  Warning: %v", err)
			mqttClient.Disconnect()
		} else {
			service.AddNotifier(mqttClient)
			handlers.SetMQTTStatus(mqttClient)
			defer mqttClient.Disconnect()
		}
	} else {
		log.Println("📡 MQTT disabled, skipping MQTT initialization")
	}

	router := httphandlers.SetupRoutes(handlers, wsHub, collector, prometheus.DefaultGatherer)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Printf("🚀 Starting HTTP server on port %s", cfg.Server.Port)
		log.Println("📡 API endpoints available:")
		log.Println("  POST /api/v1/ica/compute - Compute ICA without storing")
		log.Println("  POST /api/v1/monitorings - Record a field monitoring")
		log.Println("  GET  /api/v1/monitorings - List field monitorings")
		log.Println("  GET  /api/v1/monitorings/latest - Latest sample per station")
		log.Println("  GET  /api/v1/monitorings/{id} - Field monitoring details")
		log.Println("  POST /api/v1/discharges - Record a discharge monitoring")
		log.Println("  GET  /api/v1/discharges - List discharge monitorings")
		log.Println("  GET  /api/v1/discharges/{id} - Discharge monitoring details")
		log.Println("  GET  /api/v1/quality/summary - Records per quality class")
		log.Println("  GET  /api/v1/export/ica.xlsx - Export ICA report to Excel")
		log.Println("  GET  /api/v1/export/ica.csv - Export ICA report to CSV")
		log.Println("  POST /api/v1/export/archive - Upload ICA report to S3")
		log.Println("  GET  /api/v1/stats - System statistics")
		log.Println("  GET  /metrics - Prometheus metrics")
		log.Println("  WS   /ws - WebSocket for real-time updates")
		log.Printf("🌐 Server running at http://localhost:%s", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ HTTP server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()

	log.Println("🛑 Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server shutdown complete")
}
