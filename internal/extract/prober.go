package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

type (
	// ProbeInfo is the shallow metadata the basic extraction tier can
	// recover without the heavy engine. Frame rate is deliberately not
	// part of this contract: the basic tier cannot determine it.
	ProbeInfo struct {
		Duration time.Duration
		Width    int
		Height   int
	}

	// Prober is the basic fallback tier: the host system's own media
	// capabilities, consulted when the heavy engine is unavailable or
	// has failed for a file.
	Prober interface {
		Probe(ctx context.Context, path string) (*ProbeInfo, error)
		CaptureFrame(ctx context.Context, path string, seekSeconds float64) ([]byte, error)
	}

	// systemProber shells out to the bare ffprobe/ffmpeg binaries on the
	// host PATH with a minimal flag set.
	systemProber struct{}

	ffprobeOutput struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
)

func NewSystemProber() Prober {
	return &systemProber{}
}

func (prober *systemProber) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("basic probe of %s failed: %w", path, err)
	}

	var output ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, fmt.Errorf("basic probe of %s produced unparsable output: %w", path, err)
	}

	durationSeconds, err := strconv.ParseFloat(output.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("basic probe of %s reported no usable duration: %w", path, err)
	}

	info := &ProbeInfo{Duration: time.Duration(durationSeconds * float64(time.Second))}
	for _, stream := range output.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			break
		}
	}

	return info, nil
}

// CaptureFrame grabs a single frame at the seek offset provided and returns
// its encoded bytes. The intermediate file is removed before returning so
// the caller receives a self-contained payload.
func (prober *systemProber) CaptureFrame(ctx context.Context, path string, seekSeconds float64) ([]byte, error) {
	scratch, err := os.CreateTemp("", "mediabin-frame-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to allocate scratch file for frame capture: %w", err)
	}
	scratch.Close()
	defer os.Remove(scratch.Name())

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-ss", strconv.FormatFloat(seekSeconds, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-y",
		scratch.Name(),
	)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("basic frame capture of %s failed: %w", path, err)
	}

	frame, err := os.ReadFile(scratch.Name())
	if err != nil {
		return nil, fmt.Errorf("basic frame capture of %s produced no output: %w", path, err)
	}

	return frame, nil
}
