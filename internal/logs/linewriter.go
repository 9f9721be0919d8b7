package logx

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// LineWriter turns stream output into per-line zerolog events at a given level.
// It can either Pipe a reader or be used directly as a subprocess io.Writer;
// in the latter case call Flush once the process exits.
type LineWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
	buf    []byte
}

func NewLineWriter(base zerolog.Logger, fields map[string]string, level zerolog.Level) *LineWriter {
	w := base.With()
	for k, v := range fields {
		w = w.Str(k, v)
	}
	return &LineWriter{logger: w.Logger(), level: level}
}

func (lw *LineWriter) Pipe(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lw.emit(sc.Text())
	}
}

func (lw *LineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		// ffmpeg redraws its progress line with \r
		i := bytes.IndexAny(lw.buf, "\r\n")
		if i < 0 {
			break
		}
		lw.emit(string(lw.buf[:i]))
		lw.buf = lw.buf[i+1:]
	}
	return len(p), nil
}

// Flush emits whatever partial line is still buffered.
func (lw *LineWriter) Flush() {
	if len(lw.buf) > 0 {
		lw.emit(string(lw.buf))
		lw.buf = nil
	}
}

func (lw *LineWriter) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	switch lw.level {
	case zerolog.DebugLevel:
		lw.logger.Debug().Msg(line)
	case zerolog.WarnLevel:
		lw.logger.Warn().Msg(line)
	case zerolog.ErrorLevel:
		lw.logger.Error().Msg(line)
	default:
		lw.logger.Info().Msg(line)
	}
}
