package media

import (
	"fmt"
	"time"

	"github.com/calfield/mediabin/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.Get("Media")

type (
	// ImageInfo holds the fields populated for image items.
	ImageInfo struct {
		Width  int
		Height int
	}

	// VideoInfo holds the fields populated for video items. FPS is nil
	// when extraction had to use the basic fallback path, which cannot
	// determine the frame rate.
	VideoInfo struct {
		Duration time.Duration
		Width    int
		Height   int
		FPS      *float64
	}

	// AudioInfo holds the fields populated for audio items.
	AudioInfo struct {
		Duration time.Duration
	}

	// OverlayInfo holds the fields for the text-overlay variant. Overlay
	// items are authored inside the editor rather than ingested, and
	// carry no preview or thumbnail handles.
	OverlayInfo struct {
		Content   string
		Font      string
		Color     string
		Alignment string
	}

	// Item is a processed media entity. Exactly one of the variant
	// structs (Image/Video/Audio/Overlay) is populated, matching Kind.
	// An item without an ID is a draft: produced by the ingestion
	// pipeline, identity is only assigned once a Store accepts it.
	Item struct {
		ID        uuid.UUID
		Kind      Kind
		Source    SourceFile
		Preview   *Handle
		Thumbnail *Handle

		Image   *ImageInfo
		Video   *VideoInfo
		Audio   *AudioInfo
		Overlay *OverlayInfo
	}
)

// NewOverlayItem constructs a draft text-overlay item. These never pass
// through the ingestion pipeline.
func NewOverlayItem(info OverlayInfo) *Item {
	return &Item{
		Kind:    KindOverlay,
		Overlay: &info,
	}
}

// Handles returns the ephemeral handles this item currently holds.
func (item *Item) Handles() []*Handle {
	handles := make([]*Handle, 0, 2)
	if item.Preview != nil {
		handles = append(handles, item.Preview)
	}
	if item.Thumbnail != nil {
		handles = append(handles, item.Thumbnail)
	}

	return handles
}

// ReleaseHandles releases every handle held by this item. Handles which
// were already released are skipped so that release remains exactly-once
// regardless of which removal path fires first.
func (item *Item) ReleaseHandles() {
	for _, handle := range item.Handles() {
		if handle.Released() {
			continue
		}

		if err := handle.Release(); err != nil {
			log.Emit(logger.WARNING, "Failed to release %s handle of item %s: %v\n", handle.Form(), item, err)
		}
	}
}

func (item *Item) String() string {
	return fmt.Sprintf("Item{ID=%s kind=%s source=%s}", item.ID, item.Kind, item.Source.Name)
}
