package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/snapgram/internal/buildinfo"
	"github.com/dmitrijs2005/snapgram/internal/client/cli"
	"github.com/dmitrijs2005/snapgram/internal/config"
	"github.com/dmitrijs2005/snapgram/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	// stdout belongs to the prompt and the toasts
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
