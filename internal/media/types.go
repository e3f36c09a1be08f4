package media

import (
	"path/filepath"
	"strings"
)

// Kind classifies a media item for upload routing
type Kind int

const (
	KindUnsupported Kind = iota
	KindPhoto
	KindVideo
	KindAnimation
)

func (k Kind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindAnimation:
		return "animation"
	default:
		return "unsupported"
	}
}

// Source names
const (
	SourceLocal = "local"
	SourceCloud = "cloud"
)

// Item is one discovered media entry. It lives for a single pipeline pass;
// only its Key is ever persisted.
type Item struct {
	Key         string
	DisplayName string
	Kind        Kind
	Size        int64
	Locator     string // local path or download URL
	MimeType    string
	Source      string
	RelPath     string
}

var (
	photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true}
	videoExts = map[string]bool{".mp4": true, ".mov": true, ".avi": true, ".mkv": true}
	animExts  = map[string]bool{".gif": true}
)

// KindFromExt classifies a file name by its extension
func KindFromExt(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case animExts[ext]:
		return KindAnimation
	case photoExts[ext]:
		return KindPhoto
	case videoExts[ext]:
		return KindVideo
	}
	return KindUnsupported
}

// KindFromMIME classifies a declared MIME type. GIFs are animations.
func KindFromMIME(mimeType string) Kind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case mimeType == "image/gif":
		return KindAnimation
	case strings.HasPrefix(mimeType, "image/"):
		return KindPhoto
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	}
	return KindUnsupported
}

// MimeTypeFromExt returns a best-effort MIME type for a supported extension
func MimeTypeFromExt(name string) string {
	mimeTypes := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".heic": "image/heic",
		".gif":  "image/gif",
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
		".avi":  "video/x-msvideo",
		".mkv":  "video/x-matroska",
	}

	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}
