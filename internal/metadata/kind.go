package metadata

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind selects the extraction and transcoding strategy for a file.
type Kind int

const (
	Video Kind = iota + 1
	Photo
)

func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Photo:
		return "photo"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k == Video || k == Photo }

// ParseKind accepts "video" or "photo".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "video":
		return Video, nil
	case "photo":
		return Photo, nil
	}
	return 0, fmt.Errorf("unknown media kind %q", s)
}

// KindFromMIME maps video/* and image/* document types.
func KindFromMIME(mime string) (Kind, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "video"):
		return Video, true
	case strings.HasPrefix(mime, "image"):
		return Photo, true
	}
	return 0, false
}

// Ext returns the lower-case extension of path including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsEXIFImage reports extensions whose metadata lives in an EXIF/TIFF IFD.
func IsEXIFImage(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	}
	return false
}

// IsPNG reports the PNG extension.
func IsPNG(ext string) bool { return ext == ".png" }
