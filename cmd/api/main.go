package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"gogrowth/adapters/httpapi"
	"gogrowth/adapters/postgres"
	"gogrowth/adapters/solver"
	"gogrowth/app"
	"gogrowth/internal/config"
	"gogrowth/internal/fitting"
	"gogrowth/ports"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] configuration error: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	var repo ports.ResultRepository
	if cfg.Database.URL != "" {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			log.Fatalf("[API] database error: %v", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			log.Fatalf("[API] schema error: %v", err)
		}
		repo = postgres.NewSummaryRepository(db)
	} else {
		log.Printf("[API] DATABASE_URL not set, running without persistence")
	}

	engine := fitting.NewEngine(solver.NewLevMar())
	service := app.NewAnalysisService(engine, repo, cfg.Analysis)
	handler := httpapi.NewHandler(service, repo)

	addr := ":" + cfg.Server.Port
	log.Printf("[API] listening on %s", addr)
	if err := handler.Router().Run(addr); err != nil {
		log.Fatalf("[API] server failed: %v", err)
	}
}
