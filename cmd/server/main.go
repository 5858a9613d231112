package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/config"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/handlers"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/logging"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/reminders"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(cfg.GinMode)
	}

	db := database.InitDB(cfg.DatabaseURL, cfg.DataPath)
	if cfg.SeedDemoData {
		if err := database.Seed(db, time.Now()); err != nil {
			log.Fatalf("could not seed database: %v", err)
		}
	} else if err := database.EnsureServiceTypes(db); err != nil {
		log.Fatalf("could not create service types: %v", err)
	}

	store := database.NewStore(db)
	h := handlers.New(store, cfg)
	r := handlers.NewRouter(h)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rem := reminders.New(store, cfg.Location)
	job, err := rem.Start(ctx, cfg.ReminderCron)
	if err != nil {
		log.Fatalf("could not start reminders: %v", err)
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("could not run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")
	<-job.Stop().Done()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
