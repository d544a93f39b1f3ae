package extract

import (
	"bytes"
	"context"
	"image/jpeg"

	"github.com/calfield/mediabin/internal/engine"
	"github.com/calfield/mediabin/internal/media"
	"github.com/calfield/mediabin/pkg/logger"
	"github.com/disintegration/imaging"
)

// Maximum bounding box for inline (self-contained) thumbnails. Engine
// thumbnails live on disk and are not constrained here.
const (
	inlineThumbWidth  = 320
	inlineThumbHeight = 180
)

// engineStrategy is the rich tier: duration, dimensions and frame rate via
// the heavy engine, plus a rendered thumbnail as a revocable file handle.
type engineStrategy struct {
	loader *engine.Loader
}

func (strategy *engineStrategy) name() string { return "engine" }

func (strategy *engineStrategy) extract(ctx context.Context, path string) (*VideoResult, error) {
	eng, err := strategy.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	info, err := eng.GetVideoInfo(ctx, path)
	if err != nil {
		return nil, err
	}

	thumbPath, err := eng.GenerateThumbnail(ctx, path, thumbnailSeekSeconds(info.Duration.Seconds()))
	if err != nil {
		return nil, err
	}

	result := &VideoResult{
		Info: media.VideoInfo{
			Duration: info.Duration,
			Width:    info.Width,
			Height:   info.Height,
		},
		Thumbnail: media.NewFileHandle(thumbPath),
	}

	// A zero rate means the container's frame-rate field was missing or
	// malformed; an absent FPS is more honest than a 0fps claim.
	if info.FPS > 0 {
		fps := info.FPS
		result.Info.FPS = &fps
	}

	return result, nil
}

// basicStrategy is the degraded tier: duration and dimensions only (no
// frame rate) from the system prober, with a best-effort inline thumbnail.
type basicStrategy struct {
	prober Prober
}

func (strategy *basicStrategy) name() string { return "basic" }

func (strategy *basicStrategy) extract(ctx context.Context, path string) (*VideoResult, error) {
	info, err := strategy.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	result := &VideoResult{
		Info: media.VideoInfo{
			Duration: info.Duration,
			Width:    info.Width,
			Height:   info.Height,
		},
	}

	// Thumbnail capture is best effort on this tier; the item is still
	// useful without one.
	seek := thumbnailSeekSeconds(info.Duration.Seconds())
	frame, err := strategy.prober.CaptureFrame(ctx, path, seek)
	if err != nil {
		log.Emit(logger.WARNING, "Basic thumbnail capture failed for %s: %v\n", path, err)
		return result, nil
	}

	if inline, err := encodeInlineThumbnail(frame); err == nil {
		result.Thumbnail = media.NewInlineHandle(inline)
	} else {
		log.Emit(logger.WARNING, "Captured frame of %s could not be encoded as a thumbnail: %v\n", path, err)
	}

	return result, nil
}

// encodeInlineThumbnail downscales a captured frame so self-contained
// handles stay small enough to hold in memory alongside the item.
func encodeInlineThumbnail(frame []byte) ([]byte, error) {
	decoded, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(decoded, inlineThumbWidth, inlineThumbHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
