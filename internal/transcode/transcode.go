// Package transcode drives ffmpeg (and exiftool for photos) to apply a
// parameter set to a source file and stamp the provenance metadata.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	logx "github.com/mykytaterentiev/metaOfmBot/internal/logs"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
	"github.com/mykytaterentiev/metaOfmBot/internal/params"
)

var commandContext = exec.CommandContext

const (
	defaultTimeout = 10 * time.Minute
	stderrTail     = 8 << 10
	// neutral white point for the optional colortemperature stage
	neutralKelvin = 6500
)

// Job describes one variant to produce.
type Job struct {
	Index  int
	Input  string
	Output string
	Kind   metadata.Kind
	Params params.Set
	Title  string
}

// Invoker runs the external tools synchronously, one job at a time.
type Invoker struct {
	ffmpeg      string
	exiftool    string
	timeout     time.Duration
	temperature bool
}

type Option func(*Invoker)

func WithFFmpeg(path string) Option {
	return func(i *Invoker) {
		if p := strings.TrimSpace(path); p != "" {
			i.ffmpeg = p
		}
	}
}

func WithExiftool(path string) Option {
	return func(i *Invoker) {
		if p := strings.TrimSpace(path); p != "" {
			i.exiftool = p
		}
	}
}

// WithTimeout bounds each subprocess. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithTemperature adds a colortemperature stage driven by the temperature
// adjustment.
func WithTemperature(enabled bool) Option {
	return func(i *Invoker) { i.temperature = enabled }
}

func New(opts ...Option) *Invoker {
	inv := &Invoker{ffmpeg: "ffmpeg", exiftool: "exiftool", timeout: defaultTimeout}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Error is returned when an external tool exits unsuccessfully.
type Error struct {
	Tool     string
	Variant  int
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s variant %d: %v", e.Tool, e.Variant, e.Err)
	if last := lastLine(e.Stderr); last != "" {
		msg += ": " + last
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Apply renders job.Output from job.Input. It does not retry.
func (inv *Invoker) Apply(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.Input) == "" || strings.TrimSpace(job.Output) == "" {
		return errors.New("transcode: input and output paths are required")
	}
	comment := params.FormatComment(job.Params)
	graph := FilterGraph(job.Params, inv.temperature)

	switch job.Kind {
	case metadata.Video:
		return inv.run(ctx, job.Index, inv.ffmpeg, VideoArgs(job.Input, job.Output, graph, job.Title, comment))
	case metadata.Photo:
		if err := inv.run(ctx, job.Index, inv.ffmpeg, PhotoArgs(job.Input, job.Output, graph)); err != nil {
			return err
		}
		args := StampArgs(job.Output, job.Title, comment)
		if args == nil {
			l := logx.Component(ctx, "transcode")
			l.Debug().Str("output", job.Output).Msg("no metadata writer for extension; skipping stamp")
			return nil
		}
		return inv.run(ctx, job.Index, inv.exiftool, args)
	}
	return fmt.Errorf("transcode: unsupported kind %s", job.Kind)
}

// FilterGraph builds the ffmpeg -vf expression. Brightness is stored as a
// multiplier around 1.0 and shifted into eq's additive range.
func FilterGraph(s params.Set, temperature bool) string {
	stages := []string{
		fmt.Sprintf("eq=brightness=%s:contrast=%s:gamma=%s",
			params.Format(s.Brightness-1), params.Format(s.Contrast), params.Format(s.Gamma)),
		fmt.Sprintf("unsharp=5:5:%s", params.Format(s.Sharpen)),
	}
	if temperature {
		stages = append(stages, fmt.Sprintf("colortemperature=temperature=%d", int(math.Round(neutralKelvin*s.Temperature))))
	}
	return strings.Join(stages, ",")
}

// VideoArgs re-encodes video with the filter graph, copies audio and writes
// the title and comment container tags.
func VideoArgs(in, out, graph, title, comment string) []string {
	args := []string{"-y", "-hide_banner", "-threads", "1", "-i", in}
	if graph != "" {
		args = append(args, "-vf", graph, "-c:v", "libx264", "-preset", "ultrafast", "-crf", "18")
	} else {
		args = append(args, "-c:v", "copy")
	}
	args = append(args, "-c:a", "copy")
	if title != "" {
		args = append(args, "-metadata", "title="+title)
	}
	if comment != "" {
		args = append(args, "-metadata", "comment="+comment)
	}
	return append(args, out)
}

// PhotoArgs writes a single filtered frame.
func PhotoArgs(in, out, graph string) []string {
	args := []string{"-y", "-hide_banner", "-i", in}
	if graph != "" {
		args = append(args, "-vf", graph)
	}
	args = append(args, "-frames:v", "1", "-update", "1")
	if metadata.IsEXIFImage(metadata.Ext(out)) {
		args = append(args, "-q:v", "2")
	}
	return append(args, out)
}

// StampArgs returns the exiftool arguments writing title/comment where the
// metadata extractor will look for them, or nil for unsupported formats.
func StampArgs(path, title, comment string) []string {
	ext := metadata.Ext(path)
	var titleTag, commentTag string
	switch {
	case metadata.IsEXIFImage(ext):
		titleTag, commentTag = "Artist", "ImageDescription"
	case metadata.IsPNG(ext):
		titleTag, commentTag = "PNG:Title", "PNG:Description"
	default:
		return nil
	}
	return []string{
		"-overwrite_original", "-q",
		fmt.Sprintf("-%s=%s", titleTag, title),
		fmt.Sprintf("-%s=%s", commentTag, comment),
		path,
	}
}

func (inv *Invoker) run(ctx context.Context, variant int, binary string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	l := logx.Component(ctx, "transcode")
	l.Info().Str("tool", binary).Int("variant", variant).Strs("args", args).Msg("running")

	// exec copies stdout and stderr on separate goroutines, so each gets its own writer
	tail := &tailBuffer{max: stderrTail}
	stdout := logx.NewLineWriter(l, map[string]string{"tool": binary, "stream": "stdout"}, zerolog.DebugLevel)
	stderr := logx.NewLineWriter(l, map[string]string{"tool": binary, "stream": "stderr"}, zerolog.DebugLevel)
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(tail, stderr)

	start := time.Now()
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err == nil {
		l.Info().Str("tool", binary).Int("variant", variant).Dur("took", time.Since(start)).Msg("finished")
		return nil
	}

	te := &Error{Tool: binary, Variant: variant, ExitCode: -1, Stderr: tail.String(), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		te.Err = fmt.Errorf("timed out after %s: %w", inv.timeout, context.DeadlineExceeded)
	}
	l.Error().Err(te.Err).Str("tool", binary).Int("variant", variant).Int("exit_code", te.ExitCode).
		Str("stderr", te.Stderr).Msg("external tool failed")
	return te
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return strings.TrimSpace(string(t.buf)) }

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, "\r\n"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
