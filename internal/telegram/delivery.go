package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	logx "github.com/mykytaterentiev/metaOfmBot/internal/logs"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadiff"
	"github.com/mykytaterentiev/metaOfmBot/internal/pipeline"
)

// Delivery sends each variant to one chat: first the metadata log as a text
// document, then the media itself.
type Delivery struct {
	api    Sender
	chatID int64
	kind   metadata.Kind
}

func NewDelivery(api Sender, chatID int64, kind metadata.Kind) *Delivery {
	return &Delivery{api: api, chatID: chatID, kind: kind}
}

func (d *Delivery) Deliver(ctx context.Context, r pipeline.Result) error {
	doc := tgbotapi.NewDocument(d.chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("variant_%d_logs.txt", r.Index),
		Bytes: []byte(metadiff.Summary(r.Index, r.Report)),
	})
	doc.Caption = fmt.Sprintf("Logs for variant #%d", r.Index)
	if _, err := d.api.Send(doc); err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	var media tgbotapi.Chattable
	switch d.kind {
	case metadata.Photo:
		media = tgbotapi.NewPhoto(d.chatID, tgbotapi.FilePath(r.OutputPath))
	default:
		media = tgbotapi.NewVideo(d.chatID, tgbotapi.FilePath(r.OutputPath))
	}
	if _, err := d.api.Send(media); err != nil {
		return fmt.Errorf("send %s: %w", d.kind, err)
	}
	l := logx.FromCtx(ctx)
	l.Info().Int("variant", r.Index).Int64("chat_id", d.chatID).Msg("variant delivered")
	return nil
}
