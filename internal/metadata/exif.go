package metadata

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

var errNoEXIF = errors.New("no EXIF data")

// readEXIF maps IFD0 Artist to title and ImageDescription to comment. Works
// on JPEG (APP1 segment) and bare TIFF files.
func readEXIF(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, fmt.Errorf("%w: %v", errNoEXIF, err)
	}

	snap := Snapshot{}
	snap.setNonEmpty(FieldTitle, exifString(x, exif.Artist))
	snap.setNonEmpty(FieldComment, exifString(x, exif.ImageDescription))
	return snap, nil
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	v, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(v, "\x00"))
}
