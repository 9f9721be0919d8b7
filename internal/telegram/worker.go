package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"

	"github.com/mykytaterentiev/metaOfmBot/internal/jobs"
	logx "github.com/mykytaterentiev/metaOfmBot/internal/logs"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
	"github.com/mykytaterentiev/metaOfmBot/internal/params"
	"github.com/mykytaterentiev/metaOfmBot/internal/pipeline"
	"github.com/mykytaterentiev/metaOfmBot/internal/transcode"
)

type Processor interface {
	Run(ctx context.Context, req pipeline.Request, sink pipeline.Sink) ([]pipeline.Result, error)
}

type Fetcher interface {
	Download(ctx context.Context, item jobs.MediaItem, dir string) (string, error)
}

// Worker handles variants:generate tasks. Failures are told to the user and
// never retried: the input is already marked as processed.
type Worker struct {
	api      Sender
	fetch    Fetcher
	proc     Processor
	sessions *Sessions
	workDir  string
}

func NewWorker(api Sender, fetch Fetcher, proc Processor, sessions *Sessions, workDir string) *Worker {
	return &Worker{api: api, fetch: fetch, proc: proc, sessions: sessions, workDir: workDir}
}

func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	p, err := jobs.ParseGenerateVariants(t)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	ctx = logx.WithUserID(logx.WithRequestID(ctx, p.RequestID), p.UserID)
	l := logx.FromCtx(ctx)
	defer func() {
		if err := w.sessions.Release(context.WithoutCancel(ctx), p.UserID); err != nil {
			l.Warn().Err(err).Msg("release user lock")
		}
	}()

	kind, err := metadata.ParseKind(p.Item.Kind)
	if err != nil {
		return w.sendAndErr(p.ChatID, textBadFile, err)
	}

	dir, err := os.MkdirTemp(w.workDir, "download-"+p.RequestID+"-")
	if err != nil {
		return w.sendAndErr(p.ChatID, "Internal error. Try again.", err)
	}
	defer os.RemoveAll(dir)

	src, err := w.fetch.Download(ctx, p.Item, dir)
	if err != nil {
		return w.sendAndErr(p.ChatID, "Could not download the file. Please try again.", err)
	}

	w.send(p.ChatID, "Starting processing. Please wait...")
	_, err = w.proc.Run(ctx, pipeline.Request{
		ID:         p.RequestID,
		UserID:     p.UserID,
		SourcePath: src,
		FileName:   p.Item.FileName,
		Kind:       kind,
		Count:      p.Count,
	}, NewDelivery(w.api, p.ChatID, kind))
	if err != nil {
		return w.sendAndErr(p.ChatID, userMessage(err), err)
	}

	w.send(p.ChatID, "All done! Send another file or use /help for more commands.")
	return nil
}

// userMessage maps pipeline failures to chat text.
func userMessage(err error) string {
	var te *transcode.Error
	switch {
	case errors.Is(err, pipeline.ErrDuplicateContent):
		return "This file has already been processed. Please send a different file."
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return "Invalid request: " + err.Error()
	case errors.Is(err, params.ErrExhausted):
		return "Could not generate unique parameters for the variants."
	case errors.As(err, &te):
		if errors.Is(te, context.DeadlineExceeded) {
			return fmt.Sprintf("Error while generating variant #%d: processing took too long.", te.Variant)
		}
		return fmt.Sprintf("Error while generating variant #%d (exit code %d).", te.Variant, te.ExitCode)
	case errors.Is(err, os.ErrNotExist):
		return "The downloaded file could not be read. Please send it again."
	}
	return "Processing failed: " + err.Error()
}

func (w *Worker) send(chatID int64, text string) {
	if _, err := w.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		l := logx.FromCtx(context.Background())
		l.Warn().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}

func (w *Worker) sendAndErr(chatID int64, text string, err error) error {
	w.send(chatID, text)
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}
