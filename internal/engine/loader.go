package engine

import (
	"context"
	"sync"

	"github.com/calfield/mediabin/pkg/logger"
)

// Loader memoizes the loading of the heavy decoding engine. The first call
// to Load begins the load; every subsequent or concurrent call, regardless
// of timing, observes and awaits the same load. The factory runs at most
// once per Loader. Loaders are plain injected values rather than package
// state so that callers (and tests) can own and isolate instances.
type Loader struct {
	mu        sync.Mutex
	factory   Factory
	scheduler Scheduler

	loaded chan struct{}
	engine Engine
	err    error
}

func NewLoader(factory Factory, scheduler Scheduler) *Loader {
	return &Loader{
		factory:   factory,
		scheduler: scheduler,
	}
}

// Load returns the shared engine load outcome, beginning the load if no
// call has done so yet. The outcome, success or failure, is memoized;
// a failed load reports the same error to every caller. The context only
// bounds this caller's wait, not the underlying load, which once started
// runs to completion.
func (loader *Loader) Load(ctx context.Context) (Engine, error) {
	loader.mu.Lock()
	if loader.loaded == nil {
		loaded := make(chan struct{})
		loader.loaded = loaded
		go loader.performLoad(loaded)
	}
	loaded := loader.loaded
	loader.mu.Unlock()

	select {
	case <-loaded:
		return loader.engine, loader.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Preload schedules the engine load opportunistically through the idle
// scheduler without blocking the caller. A load already in flight or
// complete is simply observed, never repeated. Preloading is speculative
// and non-binding: a failure is logged and swallowed here, and will be
// re-surfaced to whichever caller performs a direct Load.
func (loader *Loader) Preload() {
	loader.scheduler.Schedule(func() {
		if _, err := loader.Load(context.Background()); err != nil {
			log.Emit(logger.WARNING, "Speculative engine preload failed (extraction will degrade to the basic path): %v\n", err)
		}
	})
}

func (loader *Loader) performLoad(loaded chan struct{}) {
	log.Emit(logger.DEBUG, "Beginning load of heavy decoding engine\n")
	engine, err := loader.factory(context.Background())

	loader.mu.Lock()
	loader.engine = engine
	loader.err = err
	loader.mu.Unlock()

	if err == nil {
		log.Emit(logger.SUCCESS, "Heavy decoding engine loaded\n")
	}
	close(loaded)
}
