package engine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calfield/mediabin/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errExpected = errors.New("test: expected error")

type stubEngine struct{}

func (stubEngine) GetVideoInfo(context.Context, string) (*engine.VideoInfo, error) {
	return &engine.VideoInfo{}, nil
}

func (stubEngine) GenerateThumbnail(context.Context, string, float64) (string, error) {
	return "", nil
}

// countingFactory returns a Factory that tracks invocations and blocks
// until release is closed, so tests can hold the load in flight.
func countingFactory(loads *atomic.Int32, release <-chan struct{}, err error) engine.Factory {
	return func(context.Context) (engine.Engine, error) {
		loads.Add(1)
		if release != nil {
			<-release
		}
		if err != nil {
			return nil, err
		}
		return stubEngine{}, nil
	}
}

func Test_Load_ConcurrentCallersShareOneLoad(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	release := make(chan struct{})
	loader := engine.NewLoader(countingFactory(&loads, release, nil), engine.ImmediateScheduler{})

	const callers = 8
	results := make([]engine.Engine, callers)
	wg := sync.WaitGroup{}
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			eng, err := loader.Load(context.Background())
			assert.Nil(t, err)
			results[slot] = eng
		}(i)
	}

	// All callers are now waiting on the single in-flight load.
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load(), "factory must run at most once")
	for _, eng := range results {
		assert.NotNil(t, eng)
	}
}

func Test_Load_FailureIsSharedWithEveryCaller(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	loader := engine.NewLoader(countingFactory(&loads, nil, errExpected), engine.ImmediateScheduler{})

	for i := 0; i < 3; i++ {
		_, err := loader.Load(context.Background())
		assert.ErrorIs(t, err, errExpected)
	}

	assert.Equal(t, int32(1), loads.Load(), "a failed load is memoized, not retried")
}

func Test_Load_ContextBoundsTheWaitNotTheLoad(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	release := make(chan struct{})
	loader := engine.NewLoader(countingFactory(&loads, release, nil), engine.ImmediateScheduler{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The underlying load keeps running and later callers still share it.
	close(release)
	eng, err := loader.Load(context.Background())
	require.Nil(t, err)
	assert.NotNil(t, eng)
	assert.Equal(t, int32(1), loads.Load())
}

func Test_Preload_DoesNotTriggerASecondLoad(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	loader := engine.NewLoader(countingFactory(&loads, nil, nil), engine.ImmediateScheduler{})

	_, err := loader.Load(context.Background())
	require.Nil(t, err)

	loader.Preload()
	loader.Preload()

	assert.Equal(t, int32(1), loads.Load())
}

func Test_Preload_SwallowsLoadFailure(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	loader := engine.NewLoader(countingFactory(&loads, nil, errExpected), engine.ImmediateScheduler{})

	// Preload must not panic or surface the failure to anyone.
	loader.Preload()
	assert.Equal(t, int32(1), loads.Load())

	// A direct load observes the same failed outcome.
	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, errExpected)
	assert.Equal(t, int32(1), loads.Load())
}

func Test_IdleScheduler_RunsTaskOnIdleSignal(t *testing.T) {
	t.Parallel()

	idle := make(chan struct{}, 1)
	scheduler := engine.NewIdleScheduler(idle, time.Minute)

	ran := make(chan struct{})
	scheduler.Schedule(func() { close(ran) })

	idle <- struct{}{}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task never ran after idle signal")
	}
}

func Test_IdleScheduler_FallbackTimerFiresWithoutIdleSignal(t *testing.T) {
	t.Parallel()

	scheduler := engine.NewIdleScheduler(nil, 50*time.Millisecond)

	ran := make(chan struct{})
	scheduler.Schedule(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task never ran via fallback timer")
	}
}
