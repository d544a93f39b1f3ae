package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type (
	// Kind discriminates the variant of a media item. Classification is
	// fixed at creation time and never changes for the lifetime of an item.
	Kind int

	// SourceFile describes a user-supplied binary payload handed to the
	// ingestion pipeline. The underlying file is owned by the caller and
	// is strictly read-only to this system.
	SourceFile struct {
		Name        string
		Path        string
		ContentType string
		Size        int64
	}

	// Classifier maps source files to a media Kind. The declared content
	// type is authoritative; content sniffing is only consulted when the
	// declaration is missing or too generic to be useful.
	Classifier struct{}
)

const (
	KindUnsupported Kind = iota
	KindImage
	KindVideo
	KindAudio
	KindOverlay
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindOverlay:
		return "overlay"
	default:
		return fmt.Sprintf("unsupported[%d]", k)
	}
}

// ClassifyContentType maps a declared content-type string to a media Kind.
// Pure and synchronous; performs no I/O.
func ClassifyContentType(contentType string) Kind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo
	case strings.HasPrefix(contentType, "audio/"):
		return KindAudio
	default:
		return KindUnsupported
	}
}

// Classify determines the Kind of the source file provided. The declared
// content type is used when present; an absent or opaque declaration
// ('application/octet-stream') causes the file content to be sniffed,
// with a final extension-based guess if sniffing cannot run.
func (classifier *Classifier) Classify(file SourceFile) Kind {
	declared := strings.TrimSpace(file.ContentType)
	if declared != "" && declared != "application/octet-stream" {
		return ClassifyContentType(declared)
	}

	if file.Path != "" {
		if detected, err := mimetype.DetectFile(file.Path); err == nil {
			if kind := ClassifyContentType(detected.String()); kind != KindUnsupported {
				return kind
			}
		}
	}

	return classifyByExtension(file.Name)
}

// classifyByExtension is the last-resort classification tier for files
// whose content type could not be determined any other way.
func classifyByExtension(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff":
		return KindImage
	case ".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v":
		return KindVideo
	case ".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a", ".opus":
		return KindAudio
	default:
		return KindUnsupported
	}
}
