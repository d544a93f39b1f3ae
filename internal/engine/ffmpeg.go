package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/calfield/mediabin/pkg/logger"
	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
	"github.com/google/uuid"
)

var log = logger.Get("Engine")

// FFmpegConfig holds the host-specific locations of the ffmpeg toolchain
// and the directory rendered thumbnails are written to.
type FFmpegConfig struct {
	FfmpegBinaryPath  string `yaml:"ffmpeg_binary" env:"FFMPEG_BINARY_PATH" env-default:"ffmpeg"`
	FfprobeBinaryPath string `yaml:"ffprobe_binary" env:"FFPROBE_BINARY_PATH" env-default:"ffprobe"`
	ThumbnailDirPath  string `yaml:"thumbnail_dir" env:"THUMBNAIL_DIR"`
}

type ffmpegEngine struct {
	ffmpegPath   string
	ffprobePath  string
	thumbnailDir string
}

// NewFFmpegEngine resolves and validates the ffmpeg toolchain described by
// the config provided. This is the expensive step deferred by the Loader;
// once constructed, the engine itself is cheap to call.
func NewFFmpegEngine(config FFmpegConfig) (Engine, error) {
	ffmpegPath, err := exec.LookPath(config.FfmpegBinaryPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg binary could not be resolved: %w", err)
	}

	ffprobePath, err := exec.LookPath(config.FfprobeBinaryPath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe binary could not be resolved: %w", err)
	}

	if config.ThumbnailDirPath == "" {
		return nil, errors.New("no thumbnail directory configured")
	}
	if err := os.MkdirAll(config.ThumbnailDirPath, os.ModeDir|os.ModePerm); err != nil {
		return nil, fmt.Errorf("thumbnail directory could not be created: %w", err)
	}

	log.Emit(logger.DEBUG, "Resolved ffmpeg toolchain (ffmpeg=%s ffprobe=%s)\n", ffmpegPath, ffprobePath)
	return &ffmpegEngine{
		ffmpegPath:   ffmpegPath,
		ffprobePath:  ffprobePath,
		thumbnailDir: config.ThumbnailDirPath,
	}, nil
}

// FFmpegFactory wraps NewFFmpegEngine in a Factory suitable for a Loader.
func FFmpegFactory(config FFmpegConfig) Factory {
	return func(_ context.Context) (Engine, error) {
		return NewFFmpegEngine(config)
	}
}

func (engine *ffmpegEngine) transcoderConfig() *ffmpeg.Config {
	return &ffmpeg.Config{
		FfmpegBinPath:  engine.ffmpegPath,
		FfprobeBinPath: engine.ffprobePath,
	}
}

func (engine *ffmpegEngine) GetVideoInfo(_ context.Context, path string) (*VideoInfo, error) {
	metadata, err := ffmpeg.New(engine.transcoderConfig()).Input(path).GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}

	stream, err := selectVideoStream(metadata)
	if err != nil {
		return nil, err
	}

	durationSeconds, err := strconv.ParseFloat(metadata.GetFormat().GetDuration(), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration of %s: %w", path, err)
	}

	return &VideoInfo{
		Duration: secondsToDuration(durationSeconds),
		Width:    stream.GetWidth(),
		Height:   stream.GetHeight(),
		FPS:      parseFrameRate(stream.GetAvgFrameRate()),
	}, nil
}

func (engine *ffmpegEngine) GenerateThumbnail(ctx context.Context, path string, seekSeconds float64) (string, error) {
	outputPath := filepath.Join(engine.thumbnailDir, fmt.Sprintf("%s.jpg", uuid.New()))

	seekTime := strconv.FormatFloat(seekSeconds, 'f', 3, 64)
	frames := 1
	overwrite := true
	outputFormat := "image2"
	opts := &ffmpeg.Options{
		SeekTime:     &seekTime,
		Vframes:      &frames,
		Overwrite:    &overwrite,
		OutputFormat: &outputFormat,
	}

	progress, err := ffmpeg.
		New(engine.transcoderConfig()).
		Input(path).
		Output(outputPath).
		WithContext(&ctx).
		Start(opts)
	if err != nil {
		return "", fmt.Errorf("failed to render thumbnail for %s: %w", path, err)
	}

	// Drain the progress channel; rendering a single frame finishes
	// almost immediately and we only care about completion.
	for range progress {
	}

	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("thumbnail render for %s produced no output: %w", path, err)
	}

	return outputPath, nil
}

// selectVideoStream picks the first stream ffprobe reports as video. Files
// with no video stream at all cannot be thumbnailed or measured.
func selectVideoStream(metadata transcoder.Metadata) (transcoder.Streams, error) {
	streams := metadata.GetStreams()
	for _, stream := range streams {
		if stream.GetCodecType() == "video" {
			return stream, nil
		}
	}

	if len(streams) > 0 {
		return streams[0], nil
	}

	return nil, errors.New("media container exposes no streams")
}

// parseFrameRate converts ffprobe's rational frame rate form ('30000/1001')
// to frames per second. A malformed or zero-denominator rate yields 0.
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) == 1 {
		fps, _ := strconv.ParseFloat(parts[0], 64)
		return fps
	}

	numerator, errN := strconv.ParseFloat(parts[0], 64)
	denominator, errD := strconv.ParseFloat(parts[1], 64)
	if errN != nil || errD != nil || denominator == 0 {
		return 0
	}

	return numerator / denominator
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
