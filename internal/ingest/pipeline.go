package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/calfield/mediabin/internal/event"
	"github.com/calfield/mediabin/internal/extract"
	"github.com/calfield/mediabin/internal/media"
	"github.com/calfield/mediabin/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.Get("Ingest")

type (
	classifier interface {
		Classify(media.SourceFile) media.Kind
	}

	extractor interface {
		ExtractImage(ctx context.Context, path string) (*media.ImageInfo, error)
		ExtractVideo(ctx context.Context, path string) (*extract.VideoResult, error)
		ExtractAudio(ctx context.Context, path string) (*media.AudioInfo, error)
	}

	// ProgressFunc receives an integer percentage in [0,100] after each
	// file that completes extraction.
	ProgressFunc func(percent int)

	// Config controls where the pipeline stages preview artifacts.
	Config struct {
		PreviewDirPath string `yaml:"preview_dir" env:"PREVIEW_DIR"`
	}

	// Result is the outcome of one batch: the draft items produced, in
	// input order, plus a diagnostic per skipped or failed file.
	Result struct {
		Items    []*media.Item
		Troubles []Trouble
	}

	// Pipeline converts raw user-supplied files into draft media items.
	// Files are processed strictly in order, one at a time, to bound peak
	// resource usage and keep output ordering deterministic.
	Pipeline struct {
		config     Config
		classifier classifier
		extractor  extractor
		eventBus   event.EventDispatcher
	}
)

// New creates an ingestion Pipeline using the provided config.
//
// The config's PreviewDirPath is validated to be an existing directory.
// If the directory is missing it will be created; if the path provided
// points to an existing FILE, an error is returned.
func New(config Config, classifier classifier, extractor extractor, eventBus event.EventDispatcher) (*Pipeline, error) {
	if config.PreviewDirPath == "" {
		return nil, errors.New("no preview directory configured")
	}

	if info, err := os.Stat(config.PreviewDirPath); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("preview path '%s' is not a directory", config.PreviewDirPath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(config.PreviewDirPath, os.ModeDir|os.ModePerm); err != nil {
			return nil, fmt.Errorf("preview path '%s' could not be created: %w", config.PreviewDirPath, err)
		}
	} else {
		return nil, fmt.Errorf("preview path '%s' could not be accessed: %w", config.PreviewDirPath, err)
	}

	return &Pipeline{
		config:     config,
		classifier: classifier,
		extractor:  extractor,
		eventBus:   eventBus,
	}, nil
}

// Process converts the batch of files provided into draft media items,
// strictly in input order, one file at a time. Unsupported files are
// skipped with a diagnostic; a file whose extraction fails has any handle
// already allocated for it released immediately and is likewise skipped.
// The batch never aborts wholesale; the result is a best-effort subset
// preserving input order.
//
// The context is checked at each per-file boundary: cancelling abandons
// the remainder of the batch (returning the work completed so far) but
// never interrupts the file currently being processed. The pipeline also
// yields the processor once after each file so a large batch cannot
// monopolize a thread.
//
// Progress is reported after each file that completes extraction, as a
// percentage of the total batch size. Skipped files never increment the
// numerator, so a batch containing unsupported files will top out below
// 100, so callers must not treat 100 as a completion signal.
func (pipeline *Pipeline) Process(ctx context.Context, files []media.SourceFile, onProgress ProgressFunc) (*Result, error) {
	result := &Result{Items: make([]*media.Item, 0, len(files))}

	completed := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		kind := pipeline.classifier.Classify(file)
		if kind == media.KindUnsupported {
			log.Emit(logger.WARNING, "Skipping file %s: declared content type '%s' is not a supported media kind\n", file.Name, file.ContentType)
			result.Troubles = append(result.Troubles, newTrouble(file.Name, UnsupportedFile, fmt.Errorf("unsupported content type '%s'", file.ContentType)))

			runtime.Gosched()
			continue
		}

		item, err := pipeline.processFile(ctx, file, kind)
		if err != nil {
			log.Emit(logger.ERROR, "Failed to process file %s: %v\n", file.Name, err)
			result.Troubles = append(result.Troubles, newTrouble(file.Name, ExtractionFailure, err))

			runtime.Gosched()
			continue
		}

		result.Items = append(result.Items, item)
		completed++

		percent := completed * 100 / len(files)
		if onProgress != nil {
			onProgress(percent)
		}
		pipeline.dispatch(event.IngestProgressEvent, percent)

		// Yield between files so the batch stays cooperative.
		runtime.Gosched()
	}

	pipeline.dispatch(event.IngestCompleteEvent, len(result.Items))
	return result, nil
}

// processFile converts a single supported file into a draft item. The
// preview handle is allocated before extraction begins; if extraction
// subsequently fails, that handle is released before the error is
// propagated so nothing leaks for a failed file.
func (pipeline *Pipeline) processFile(ctx context.Context, file media.SourceFile, kind media.Kind) (*media.Item, error) {
	preview, err := pipeline.allocatePreview(file)
	if err != nil {
		return nil, err
	}

	item := &media.Item{
		Kind:    kind,
		Source:  file,
		Preview: preview,
	}

	switch kind {
	case media.KindImage:
		item.Image, err = pipeline.extractor.ExtractImage(ctx, file.Path)
	case media.KindVideo:
		var result *extract.VideoResult
		if result, err = pipeline.extractor.ExtractVideo(ctx, file.Path); err == nil {
			item.Video = &result.Info
			item.Thumbnail = result.Thumbnail
		}
	case media.KindAudio:
		item.Audio, err = pipeline.extractor.ExtractAudio(ctx, file.Path)
	default:
		err = fmt.Errorf("no extractor exists for media kind %s", kind)
	}

	if err != nil {
		item.ReleaseHandles()
		return nil, err
	}

	log.Emit(logger.NEW, "Assembled draft %s item from %s\n", kind, file.Name)
	return item, nil
}

// allocatePreview stages a copy of the source payload into the preview
// directory and wraps it in a revocable handle. The copy keeps the preview
// alive independently of the caller-owned source file.
func (pipeline *Pipeline) allocatePreview(file media.SourceFile) (*media.Handle, error) {
	source, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file %s: %w", file.Path, err)
	}
	defer source.Close()

	previewPath := filepath.Join(pipeline.config.PreviewDirPath, fmt.Sprintf("%s%s", uuid.New(), filepath.Ext(file.Name)))
	preview, err := os.Create(previewPath)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate preview for %s: %w", file.Name, err)
	}
	defer preview.Close()

	if _, err := io.Copy(preview, source); err != nil {
		os.Remove(previewPath)
		return nil, fmt.Errorf("failed to stage preview for %s: %w", file.Name, err)
	}

	return media.NewFileHandle(previewPath), nil
}

func (pipeline *Pipeline) dispatch(ev event.Event, payload event.Payload) {
	if pipeline.eventBus != nil {
		pipeline.eventBus.Dispatch(ev, payload)
	}
}
