// Package engine binds the heavy media decoding engine (ffmpeg/ffprobe)
// and owns its lazy, at-most-once loading. The engine is optional: callers
// are expected to degrade to basic extraction when loading fails.
package engine

import (
	"context"
	"time"
)

type (
	// VideoInfo is the rich metadata the heavy engine can recover from a
	// video file.
	VideoInfo struct {
		Duration time.Duration
		Width    int
		Height   int
		FPS      float64
	}

	// Engine is the loaded heavy decoding engine.
	Engine interface {
		// GetVideoInfo probes the file at the path provided for its
		// duration, frame dimensions and frame rate.
		GetVideoInfo(ctx context.Context, path string) (*VideoInfo, error)

		// GenerateThumbnail renders a single frame of the video at the
		// path provided, seeked to the offset given in seconds, and
		// returns the path of the rendered image. The caller owns the
		// returned file.
		GenerateThumbnail(ctx context.Context, path string, seekSeconds float64) (string, error)
	}

	// Factory performs the expensive construction of an Engine. It is
	// invoked at most once per Loader.
	Factory func(ctx context.Context) (Engine, error)
)
