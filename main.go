package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/calfield/mediabin/internal"
	"github.com/calfield/mediabin/pkg/logger"
)

var log = logger.Get("Main")

// main is the entry point to the program. The user configuration is loaded
// from the path provided (or defaults/environment if absent) and MediaBin
// runs until interrupted.
func main() {
	configPath := flag.String("config", "mediabin.yaml", "path to the YAML configuration file")
	flag.Parse()

	config := internal.MediaBinConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	bin, err := internal.New(config)
	if err != nil {
		log.Emit(logger.FATAL, "Failed to initialise MediaBin: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := bin.Run(ctx); err != nil {
		log.Emit(logger.FATAL, "MediaBin stopped with error: %v\n", err)
		os.Exit(1)
	}
}
