package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/buddy/internal/server"
	"github.com/dmitrijs2005/buddy/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {

	// A missing .env file is fine, environment variables win anyway.
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
