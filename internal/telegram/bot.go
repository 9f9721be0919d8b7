// Package telegram is the chat glue around the variant pipeline: the bot
// conversation, the asynq task handler and result delivery.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"

	"github.com/mykytaterentiev/metaOfmBot/internal/jobs"
	logx "github.com/mykytaterentiev/metaOfmBot/internal/logs"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
)

// Sender is the part of tgbotapi.BotAPI used to talk to users.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

const (
	textStart = "Hi! Send me a video or a photo, then use /process <n> to generate n unique variants " +
		"with different brightness, sharpen, temperature, contrast and gamma settings."
	textHelpFmt = "How to use the bot:\n" +
		"1. Send a video or photo (as Telegram media or as a file).\n" +
		"2. Use /process <n> (for example /process 3) to generate n unique variants, 1 to %d.\n" +
		"Every variant gets small brightness, sharpen, temperature, contrast and gamma changes.\n" +
		"You will receive a log comparing the original and the updated metadata for each variant."
	textFileReceived = "File received! Now use /process <n> to choose how many unique variants to make."
	textBadFile      = "Please send a valid video or photo file."
	textNoFile       = "No saved file. Please send a video or photo first."
	textUsage        = "Usage: /process <n> (for example /process 3)"
	textNotNumberFmt = "Please give a whole number (1-%d)."
	textRangeFmt     = "Please request between 1 and %d variants."
	textBusy         = "Your previous request is still running. Please wait for it to finish."
	textQueued       = "Generating %d unique variant(s). Please wait..."
	textUnknown      = "Unknown command. Use /help to see what I can do."
)

type Bot struct {
	api         Sender
	sessions    *Sessions
	queue       Enqueuer
	maxVariants int
}

func NewBot(api Sender, sessions *Sessions, queue Enqueuer, maxVariants int) *Bot {
	return &Bot{api: api, sessions: sessions, queue: queue, maxVariants: maxVariants}
}

// HandleUpdate processes one update. Errors are reported to the chat and
// logged; nothing is returned to the polling loop.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	m := upd.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return
	}
	ctx = logx.WithUserID(ctx, m.From.ID)
	l := logx.FromCtx(ctx)
	l.Info().Int64("chat_id", m.Chat.ID).Msg("message received")

	if m.IsCommand() {
		switch m.Command() {
		case "start":
			_ = b.sessions.ClearPending(ctx, m.From.ID)
			b.reply(m.Chat.ID, textStart)
		case "help":
			b.reply(m.Chat.ID, fmt.Sprintf(textHelpFmt, b.maxVariants))
		case "process":
			b.handleProcess(ctx, m)
		default:
			b.reply(m.Chat.ID, textUnknown)
		}
		return
	}

	item, ok, supported := extractItem(m)
	if !ok {
		if !supported {
			b.reply(m.Chat.ID, textBadFile)
		}
		return
	}
	if err := b.sessions.SetPending(ctx, m.From.ID, item); err != nil {
		l.Error().Err(err).Msg("store pending file")
		b.reply(m.Chat.ID, "Internal error (pending). Try again.")
		return
	}
	l.Info().Str("kind", item.Kind).Str("file_name", item.FileName).Msg("file stored; waiting for /process")
	b.reply(m.Chat.ID, textFileReceived)
}

func (b *Bot) handleProcess(ctx context.Context, m *tgbotapi.Message) {
	l := logx.FromCtx(ctx)
	user, chat := m.From.ID, m.Chat.ID

	item, ok, err := b.sessions.Pending(ctx, user)
	if err != nil {
		l.Error().Err(err).Msg("load pending file")
		b.reply(chat, "Internal error (pending). Try again.")
		return
	}
	if !ok {
		b.reply(chat, textNoFile)
		return
	}

	args := strings.Fields(m.CommandArguments())
	if len(args) != 1 {
		b.reply(chat, textUsage)
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(chat, fmt.Sprintf(textNotNumberFmt, b.maxVariants))
		return
	}
	if n < 1 || n > b.maxVariants {
		b.reply(chat, fmt.Sprintf(textRangeFmt, b.maxVariants))
		return
	}

	free, err := b.sessions.Acquire(ctx, user)
	if err != nil {
		l.Error().Err(err).Msg("acquire user lock")
		b.reply(chat, "Internal error. Try again.")
		return
	}
	if !free {
		b.reply(chat, textBusy)
		return
	}

	task, err := jobs.NewGenerateVariantsTask(jobs.GenerateVariantsPayload{
		ChatID: chat, UserID: user, Item: item, Count: n,
	})
	if err == nil {
		_, err = b.queue.EnqueueContext(ctx, task)
	}
	if err != nil {
		l.Error().Err(err).Msg("asynq enqueue variants:generate failed")
		_ = b.sessions.Release(ctx, user)
		b.reply(chat, "Queue error: "+err.Error())
		return
	}

	l.Info().Int("count", n).Str("kind", item.Kind).Msg("request enqueued")
	_ = b.sessions.ClearPending(ctx, user)
	b.reply(chat, fmt.Sprintf(textQueued, n))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		l := logx.FromCtx(context.Background())
		l.Warn().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}

// extractItem reads the upload from m. supported is false for documents of a
// type we cannot process; plain text yields ok=false, supported=true.
func extractItem(m *tgbotapi.Message) (item jobs.MediaItem, ok, supported bool) {
	switch {
	case m.Video != nil:
		return jobs.MediaItem{
			FileID: m.Video.FileID, FileName: m.Video.FileName, MimeType: m.Video.MimeType,
			Kind: metadata.Video.String(),
		}, true, true
	case len(m.Photo) > 0:
		// sizes are ordered smallest to largest
		largest := m.Photo[len(m.Photo)-1]
		return jobs.MediaItem{FileID: largest.FileID, Kind: metadata.Photo.String()}, true, true
	case m.Document != nil:
		kind, known := metadata.KindFromMIME(m.Document.MimeType)
		if !known {
			return item, false, false
		}
		return jobs.MediaItem{
			FileID: m.Document.FileID, FileName: m.Document.FileName, MimeType: m.Document.MimeType,
			Kind: kind.String(),
		}, true, true
	case m.Animation != nil, m.Audio != nil, m.Voice != nil, m.Sticker != nil:
		return item, false, false
	}
	return item, false, true
}
