// Package metadata reads the title and comment fields embedded in videos and
// photos. Extraction never fails: unreadable or untagged files produce an
// empty Snapshot so a diff can still be rendered against "N/A".
package metadata

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"

	logx "github.com/mykytaterentiev/metaOfmBot/internal/logs"
)

// Extractor dispatches on Kind and, for photos, on file extension.
type Extractor struct {
	ffprobe string
}

func NewExtractor(ffprobeBinary string) *Extractor {
	ffprobeBinary = strings.TrimSpace(ffprobeBinary)
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Extractor{ffprobe: ffprobeBinary}
}

// Extract returns the snapshot for path. Problems are logged, never returned.
func (e *Extractor) Extract(ctx context.Context, path string, kind Kind) Snapshot {
	l := logx.Component(ctx, "metadata").With().Str("path", path).Logger()

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		l.Warn().Err(err).Msg("metadata source not found")
		return Snapshot{}
	}

	switch kind {
	case Video:
		return e.video(ctx, path, l)
	case Photo:
		return photo(path, l)
	}
	l.Warn().Str("kind", kind.String()).Msg("unknown media kind")
	return Snapshot{}
}

func (e *Extractor) video(ctx context.Context, path string, l zerolog.Logger) Snapshot {
	tags, err := probeTags(ctx, e.ffprobe, path)
	if err != nil {
		l.Error().Err(err).Msg("read container tags")
		return Snapshot{}
	}
	snap := Snapshot{}
	for k, v := range tags {
		// mp4/mov report lower case, matroska upper case
		switch strings.ToLower(k) {
		case FieldTitle:
			snap.setNonEmpty(FieldTitle, v)
		case FieldComment:
			snap.setNonEmpty(FieldComment, v)
		}
	}
	return snap
}

func photo(path string, l zerolog.Logger) Snapshot {
	ext := Ext(path)
	switch {
	case IsEXIFImage(ext):
		snap, err := readEXIF(path)
		if err != nil {
			if errors.Is(err, errNoEXIF) {
				l.Warn().Msg("no EXIF data found")
			} else {
				l.Error().Err(err).Msg("EXIF metadata extraction failed")
			}
			return Snapshot{}
		}
		return snap
	case IsPNG(ext):
		text, err := readPNGText(path)
		if err != nil {
			l.Error().Err(err).Msg("PNG metadata extraction failed")
			return Snapshot{}
		}
		snap := Snapshot{}
		snap.setNonEmpty(FieldTitle, text["Title"])
		snap.setNonEmpty(FieldComment, text["Description"])
		return snap
	}
	l.Debug().Str("ext", ext).Msg("no metadata reader for extension")
	return Snapshot{}
}
