// main.go - aggregation daemon
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitewatch/internal/config"
	"sitewatch/internal/database"
	"sitewatch/internal/domains"
	"sitewatch/internal/jobs"
	"sitewatch/internal/logging"
)

func main() {
	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	dbm, err := database.NewDBManager(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create database manager: %v", err)
	}
	if err := dbm.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbm.Close()

	if err := dbm.GetConnection().AutoMigrate(&domains.Domain{}); err != nil {
		log.Fatalf("Failed to migrate domains table: %v", err)
	}

	scheduler, err := jobs.NewScheduler(cfg, dbm, logger)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start background jobs: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			log.Printf("Serving metrics on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, promhttp.Handler()); err != nil {
				log.Printf("Metrics listener stopped: %v", err)
			}
		}()
	}

	waitForShutdownSignal(scheduler)
}

// waitForShutdownSignal blocks until a termination signal arrives, then stops
// the background jobs.
func waitForShutdownSignal(scheduler *jobs.Scheduler) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)

	scheduler.Stop()
	log.Println("Shutdown complete")
}
