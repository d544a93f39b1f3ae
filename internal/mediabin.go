package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/calfield/mediabin/internal/api"
	"github.com/calfield/mediabin/internal/engine"
	"github.com/calfield/mediabin/internal/event"
	"github.com/calfield/mediabin/internal/extract"
	"github.com/calfield/mediabin/internal/ingest"
	"github.com/calfield/mediabin/internal/media"
	"github.com/calfield/mediabin/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	// mediaBin is the top-level object for the server, responsible for
	// constructing the stores, pipeline, engine loader and gateway, and
	// tying them together on the event bus.
	mediaBin struct {
		eventBus event.EventCoordinator
		config   MediaBinConfig

		engineLoader *engine.Loader
		mediaStore   *media.Store
		pipeline     *ingest.Pipeline
		restGateway  RunnableService
	}
)

func New(config MediaBinConfig) (*mediaBin, error) {
	if err := config.populateDefaultDirs(); err != nil {
		return nil, fmt.Errorf("failed to prepare artifact directories: %w", err)
	}

	eventBus := event.New()

	preloadFallback := time.Duration(config.EnginePreloadFallbackSeconds) * time.Second
	loader := engine.NewLoader(
		engine.FFmpegFactory(config.Engine),
		engine.NewIdleScheduler(nil, preloadFallback),
	)

	extractService := extract.New(loader, extract.NewSystemProber())
	pipeline, err := ingest.New(config.Ingest, &media.Classifier{}, extractService, eventBus)
	if err != nil {
		return nil, fmt.Errorf("failed to construct ingestion pipeline: %w", err)
	}

	store := media.NewStore(media.NewMemoryPersistence(), eventBus)

	bin := &mediaBin{
		eventBus:     eventBus,
		config:       config,
		engineLoader: loader,
		mediaStore:   store,
		pipeline:     pipeline,
		restGateway:  api.NewRestGateway(config.API, store, pipeline),
	}
	bin.registerActivityHandlers()

	return bin, nil
}

// Run starts MediaBin: the heavy engine preload is scheduled for host idle
// time, and the REST gateway serves until the context provided is
// cancelled. All locally held resource handles are released on the way out.
func (bin *mediaBin) Run(ctx context.Context) error {
	bin.engineLoader.Preload()

	defer bin.mediaStore.ClearLocal()
	return bin.restGateway.Run(ctx)
}

// registerActivityHandlers subscribes lightweight logging handlers so that
// store and pipeline activity is visible without any consumer attached.
func (bin *mediaBin) registerActivityHandlers() {
	bin.eventBus.RegisterAsyncHandlerFunction(event.MediaAddedEvent, func(_ event.Event, payload event.Payload) {
		log.Emit(logger.NEW, "Media item %v added to store\n", payload)
	})
	bin.eventBus.RegisterAsyncHandlerFunction(event.MediaRemovedEvent, func(_ event.Event, payload event.Payload) {
		log.Emit(logger.REMOVE, "Media item %v removed from store\n", payload)
	})
	bin.eventBus.RegisterAsyncHandlerFunction(event.IngestCompleteEvent, func(_ event.Event, payload event.Payload) {
		log.Emit(logger.SUCCESS, "Ingestion batch complete (%v items accepted)\n", payload)
	})
}
