package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mykytaterentiev/metaOfmBot/internal/config"
	"github.com/mykytaterentiev/metaOfmBot/internal/fingerprint"
	"github.com/mykytaterentiev/metaOfmBot/internal/jobs"
	logx "github.com/mykytaterentiev/metaOfmBot/internal/logs"
	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
	"github.com/mykytaterentiev/metaOfmBot/internal/pipeline"
	"github.com/mykytaterentiev/metaOfmBot/internal/telegram"
	"github.com/mykytaterentiev/metaOfmBot/internal/transcode"
)

/* ---------------------- wiring ---------------------- */

func openRegistry(c config.Config, rdb redis.Cmdable) (fingerprint.Registry, error) {
	switch c.RegistryBackend {
	case config.RegistryRedis:
		return fingerprint.NewRedisRegistry(rdb, c.RegistryRedisKey), nil
	default:
		return fingerprint.OpenFileRegistry(c.RegistryPath)
	}
}

func buildPipeline(c config.Config, rdb redis.Cmdable, workDir string) (*pipeline.Pipeline, error) {
	reg, err := openRegistry(c, rdb)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	batcher, err := c.Batcher()
	if err != nil {
		return nil, err
	}
	inv := transcode.New(
		transcode.WithFFmpeg(c.FFmpegBin),
		transcode.WithExiftool(c.ExiftoolBin),
		transcode.WithTimeout(c.TranscodeTimeout),
		transcode.WithTemperature(c.ApplyTemperature),
	)
	return pipeline.New(pipeline.Options{
		Registry:    reg,
		Params:      batcher,
		Extractor:   metadata.NewExtractor(c.FFprobeBin),
		Transcoder:  inv,
		WorkDir:     workDir,
		MaxVariants: c.MaxVariants,
	})
}

/* ---------------------- main ---------------------- */

func main() {
	c := config.Load()

	logx.Setup(logx.FromEnv("worker"))
	log.Info().Msg("worker starting")

	if c.BotToken == "" {
		log.Fatal().Msg("BOT_TOKEN required")
	}
	if err := c.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	workDir := filepath.Join(c.DataDir, "requests")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create work dir")
	}

	rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	defer rdb.Close()

	api, err := tgbotapi.NewBotAPI(c.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth failed")
	}

	p, err := buildPipeline(c, rdb, workDir)
	if err != nil {
		log.Fatal().Err(err).Msg("build pipeline")
	}
	log.Info().
		Str("registry", c.RegistryBackend).
		Str("param_mode", c.ParamMode).
		Dur("transcode_timeout", c.TranscodeTimeout).
		Msg("pipeline ready")

	w := telegram.NewWorker(api, telegram.NewDownloader(api, nil), p, telegram.NewSessions(rdb), workDir)

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: c.RedisAddr}, asynq.Config{
		Concurrency: c.Concurrency,
		Logger:      asynqLogger{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			l := logx.FromCtx(ctx)
			l.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(jobs.TaskGenerateVariants, w)

	log.Info().Int("concurrency", c.Concurrency).Msg("worker listening")
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("asynq server stopped")
	}
}
