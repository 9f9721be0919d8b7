package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/mykytaterentiev/metaOfmBot/internal/jobs"
	logx "github.com/mykytaterentiev/metaOfmBot/internal/logs"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
)

// FileLinker resolves a file_id to a download URL; *tgbotapi.BotAPI has it.
type FileLinker interface {
	GetFileDirectURL(fileID string) (string, error)
}

type Downloader struct {
	api    FileLinker
	client *http.Client
}

// NewDownloader uses a client with a generous timeout when client is nil.
func NewDownloader(api FileLinker, client *http.Client) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Downloader{api: api, client: client}
}

// Download stores the upload in dir as "input<ext>" and returns its path. The
// extension comes from the document name, else from Telegram's file path.
func (d *Downloader) Download(ctx context.Context, item jobs.MediaItem, dir string) (string, error) {
	link, err := d.api.GetFileDirectURL(item.FileID)
	if err != nil {
		return "", fmt.Errorf("resolve file %s: %w", item.FileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		// the URL carries the bot token
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return "", fmt.Errorf("download file %s: %w", item.FileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download file %s: unexpected status %s", item.FileID, resp.Status)
	}

	ext := metadata.Ext(item.FileName)
	if ext == "" {
		if u, err := url.Parse(link); err == nil {
			ext = metadata.Ext(path.Base(u.Path))
		}
	}
	dst := filepath.Join(dir, "input"+ext)
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	l := logx.FromCtx(ctx)
	l.Info().Str("path", dst).Int64("bytes", n).Msg("source downloaded")
	return dst, nil
}
