// Package pipeline turns one source file into N metadata-distinct variants:
// dedup, snapshot, generate parameters, transcode, diff, deliver.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/mykytaterentiev/metaOfmBot/internal/fingerprint"
	logx "github.com/mykytaterentiev/metaOfmBot/internal/logs"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadiff"
	"github.com/mykytaterentiev/metaOfmBot/internal/params"
	"github.com/mykytaterentiev/metaOfmBot/internal/transcode"
)

// DefaultMaxVariants is the largest N a request may ask for.
const DefaultMaxVariants = 10

var (
	ErrDuplicateContent = errors.New("content already processed")
	ErrInvalidRequest   = errors.New("invalid variant request")
)

// Request is one user's ask for Count variants of SourcePath.
type Request struct {
	ID         string
	UserID     int64
	SourcePath string
	// FileName is the user-facing name; its extension picks the output
	// container. Falls back to SourcePath when empty.
	FileName string
	Kind     metadata.Kind
	Count    int
}

// Result describes one produced variant. OutputPath lives in the request's
// temp dir and is removed when Run returns.
type Result struct {
	Index      int
	OutputPath string
	Params     params.Set
	Before     metadata.Snapshot
	After      metadata.Snapshot
	Report     string
}

type Extractor interface {
	Extract(ctx context.Context, path string, kind metadata.Kind) metadata.Snapshot
}

type Transcoder interface {
	Apply(ctx context.Context, job transcode.Job) error
}

// Sink receives every result, in order, once the whole batch succeeded.
type Sink interface {
	Deliver(ctx context.Context, r Result) error
}

type SinkFunc func(ctx context.Context, r Result) error

func (f SinkFunc) Deliver(ctx context.Context, r Result) error { return f(ctx, r) }

type Options struct {
	Registry   fingerprint.Registry
	Params     params.Batcher
	Extractor  Extractor
	Transcoder Transcoder
	// WorkDir is the parent of per-request temp dirs; empty uses os.TempDir.
	WorkDir     string
	MaxVariants int
	// Observer, when set, sees every state transition.
	Observer func(req Request, s State)
}

type Pipeline struct {
	o Options
}

func New(o Options) (*Pipeline, error) {
	switch {
	case o.Registry == nil:
		return nil, errors.New("pipeline: registry is required")
	case o.Params == nil:
		return nil, errors.New("pipeline: parameter generator is required")
	case o.Extractor == nil:
		return nil, errors.New("pipeline: metadata extractor is required")
	case o.Transcoder == nil:
		return nil, errors.New("pipeline: transcoder is required")
	}
	if o.MaxVariants <= 0 {
		o.MaxVariants = DefaultMaxVariants
	}
	return &Pipeline{o: o}, nil
}

// Run processes req synchronously. Nothing is handed to sink unless every
// variant was produced; on error the returned slice is nil.
func (p *Pipeline) Run(ctx context.Context, req Request, sink Sink) ([]Result, error) {
	if req.ID == "" {
		req.ID = ulid.Make().String()
	}
	ctx = logx.WithRequestID(ctx, req.ID)
	if req.UserID != 0 {
		ctx = logx.WithUserID(ctx, req.UserID)
	}
	l := logx.Component(ctx, "pipeline")
	start := time.Now()

	results, err := p.run(ctx, req, sink, l)
	if err != nil {
		p.enter(l, req, Aborted)
		l.Warn().Err(err).Dur("took", time.Since(start)).Msg("request aborted")
		return nil, err
	}
	p.enter(l, req, Completed)
	l.Info().Int("variants", len(results)).Dur("took", time.Since(start)).Msg("request completed")
	return results, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, sink Sink, l zerolog.Logger) ([]Result, error) {
	p.enter(l, req, Received)
	if err := p.validate(req); err != nil {
		return nil, err
	}

	fp, err := fingerprint.Hash(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("fingerprint source: %w", err)
	}
	claimed, err := p.o.Registry.Claim(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("registry claim: %w", err)
	}
	if !claimed {
		l.Info().Str("fingerprint", fp.Short()).Msg("duplicate content rejected")
		return nil, ErrDuplicateContent
	}
	p.enter(l, req, Deduplicated)

	before := p.o.Extractor.Extract(ctx, req.SourcePath, req.Kind)
	p.enter(l, req, Snapshotted)

	p.enter(l, req, Generating)
	sets, err := p.o.Params.Batch(req.Count)
	if err != nil {
		return nil, fmt.Errorf("generate %d parameter sets: %w", req.Count, err)
	}

	dir, err := os.MkdirTemp(p.o.WorkDir, "variants-"+req.ID+"-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			l.Error().Err(err).Str("dir", dir).Msg("remove work dir")
		}
	}()

	ext := outputExt(req)
	names := params.Names()
	results := make([]Result, 0, len(sets))
	for i, set := range sets {
		idx := i + 1
		job := transcode.Job{
			Index:  idx,
			Input:  req.SourcePath,
			Output: filepath.Join(dir, fmt.Sprintf("output_%d%s", idx, ext)),
			Kind:   req.Kind,
			Params: set,
			Title:  Title(idx),
		}

		p.enter(l, req, Transcoding)
		if err := p.o.Transcoder.Apply(ctx, job); err != nil {
			return nil, fmt.Errorf("variant %d of %d: %w", idx, len(sets), err)
		}

		p.enter(l, req, Diffing)
		after := p.o.Extractor.Extract(ctx, job.Output, req.Kind)
		results = append(results, Result{
			Index:      idx,
			OutputPath: job.Output,
			Params:     set,
			Before:     before,
			After:      after,
			Report:     metadiff.Diff(before, after, names),
		})
		l.Debug().Int("variant", idx).Str("params", set.String()).Msg("variant ready")
	}

	if sink != nil {
		for _, r := range results {
			if err := sink.Deliver(ctx, r); err != nil {
				return nil, fmt.Errorf("deliver variant %d: %w", r.Index, err)
			}
		}
	}
	return results, nil
}

func (p *Pipeline) validate(req Request) error {
	if !req.Kind.Valid() {
		return fmt.Errorf("%w: unknown media kind", ErrInvalidRequest)
	}
	if req.Count < 1 || req.Count > p.o.MaxVariants {
		return fmt.Errorf("%w: count must be between 1 and %d, got %d", ErrInvalidRequest, p.o.MaxVariants, req.Count)
	}
	if strings.TrimSpace(req.SourcePath) == "" {
		return fmt.Errorf("%w: source path is empty", ErrInvalidRequest)
	}
	return nil
}

func (p *Pipeline) enter(l zerolog.Logger, req Request, s State) {
	l.Debug().Str("state", s.String()).Msg("state")
	if p.o.Observer != nil {
		p.o.Observer(req, s)
	}
}

// Title is the title stamped on variant i.
func Title(i int) string {
	return fmt.Sprintf("Meta Variant #%d", i)
}

var photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tif": true, ".tiff": true}

func outputExt(req Request) string {
	name := req.FileName
	if name == "" {
		name = req.SourcePath
	}
	ext := metadata.Ext(name)
	if req.Kind == metadata.Photo {
		if photoExts[ext] {
			return ext
		}
		return ".jpg"
	}
	if ext == "" {
		return ".mp4"
	}
	return ext
}
