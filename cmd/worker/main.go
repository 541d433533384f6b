package main

import (
	"log"

	"github.com/praxlog/logbook-backend/internal/audit"
	"github.com/praxlog/logbook-backend/internal/config"
	"github.com/praxlog/logbook-backend/internal/database"
	"github.com/praxlog/logbook-backend/internal/logging"
	"github.com/praxlog/logbook-backend/internal/store"
)

func main() {
	cfg := config.Load()

	if err := logging.Init(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	worker := audit.NewWorker(&cfg.Redis, store.New(db.Pool()), cfg.Audit.Retention)

	scheduler, err := audit.NewScheduler(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to build scheduler: %v", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("Scheduler failed: %v", err)
		}
	}()

	log.Println("Starting audit worker...")
	if err := worker.Start(); err != nil {
		log.Fatalf("Worker failed to start: %v", err)
	}
	select {}
}
