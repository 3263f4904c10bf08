package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server"
	"github.com/dmitrijs2005/licensegate/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	runErr := app.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Close(closeCtx); err != nil {
		logger.Error(closeCtx, "close error", "error", err)
	}

	if runErr != nil {
		log.Fatalf("%v", runErr)
	}
}
