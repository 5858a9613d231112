package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/config"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/handlers"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db := database.InitDB(cfg.DatabaseURL, cfg.DataPath)
	if err := database.EnsureServiceTypes(db); err != nil {
		log.Printf("could not create service types: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r = handlers.NewRouter(handlers.New(database.NewStore(db), cfg))
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
