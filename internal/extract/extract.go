// Package extract produces the per-kind metadata and preview artifacts for
// classified media files. Video extraction is a two-tier strategy: the
// heavy engine is attempted first and the basic prober covers for it, so a
// missing or broken engine degrades quality rather than failing ingestion.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/calfield/mediabin/internal/engine"
	"github.com/calfield/mediabin/internal/media"
	"github.com/calfield/mediabin/pkg/logger"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var log = logger.Get("Extract")

type (
	// VideoResult carries everything a successful video strategy yields.
	// FPS is nil when the winning strategy was the basic one; Thumbnail
	// may be nil when even best-effort capture failed.
	VideoResult struct {
		Info      media.VideoInfo
		Thumbnail *media.Handle
	}

	// videoStrategy is one tier of video extraction. Strategies are tried
	// in order and the first success wins.
	videoStrategy interface {
		name() string
		extract(ctx context.Context, path string) (*VideoResult, error)
	}

	// Service exposes one extractor per media kind.
	Service struct {
		strategies []videoStrategy
		prober     Prober
	}
)

// New creates an extraction Service whose video tiers are, in order, the
// loader-provided heavy engine and the basic system prober.
func New(loader *engine.Loader, prober Prober) *Service {
	return &Service{
		strategies: []videoStrategy{
			&engineStrategy{loader: loader},
			&basicStrategy{prober: prober},
		},
		prober: prober,
	}
}

// ExtractImage decodes the image header at the path provided to obtain its
// natural dimensions. Images have no duration and need no thumbnail beyond
// the image itself.
func (service *Service) ExtractImage(_ context.Context, path string) (*media.ImageInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	return &media.ImageInfo{Width: config.Width, Height: config.Height}, nil
}

// ExtractVideo runs the ordered video strategies against the path provided,
// stopping at the first success. When every tier fails, the errors are
// joined so the diagnostic names each tier's failure.
func (service *Service) ExtractVideo(ctx context.Context, path string) (*VideoResult, error) {
	var failures []error
	for _, strategy := range service.strategies {
		result, err := strategy.extract(ctx, path)
		if err == nil {
			return result, nil
		}

		log.Emit(logger.DEBUG, "Video extraction tier '%s' failed for %s: %v\n", strategy.name(), path, err)
		failures = append(failures, fmt.Errorf("%s: %w", strategy.name(), err))
	}

	return nil, fmt.Errorf("all video extraction tiers failed for %s: %w", path, errors.Join(failures...))
}

// ExtractAudio recovers the duration of the audio file at the path
// provided via the basic prober.
func (service *Service) ExtractAudio(ctx context.Context, path string) (*media.AudioInfo, error) {
	info, err := service.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	return &media.AudioInfo{Duration: info.Duration}, nil
}

// thumbnailSeekSeconds picks the capture timestamp for a clip of the given
// duration: one second in, or 10% of the runtime for very short clips, to
// avoid black or blank leading frames.
func thumbnailSeekSeconds(durationSeconds float64) float64 {
	tenth := durationSeconds * 0.1
	if tenth < 1 {
		return tenth
	}

	return 1
}
