package main

import (
	"log"
	"os"

	"github.com/cdacos/sql-info-streamer/cmd/cli"
	"github.com/cdacos/sql-info-streamer/internal/config"
	"github.com/cdacos/sql-info-streamer/internal/logger"
)

func main() {
	cfg, err := config.FromFile(cli.DefaultConfigPath())
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.Setup(cfg.Logging); err != nil {
		log.Fatal(err)
	}

	os.Exit(cli.Run(cfg))
}
