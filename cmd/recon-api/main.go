package main

import (
	"log"
	"os"

	"github.com/orderappu/recon-api/cmd/recon-api/app"
	"github.com/orderappu/recon-api/configs"
)

func main() {
	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}

	app, cleanup, err := app.InitWithConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	log.Printf("recon-api (%s) listening on %s", env, cfg.App.HTTPAddr)
	if err := app.Run(cfg); err != nil {
		log.Fatal(err)
	}
}
