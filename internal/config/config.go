// Package config loads runtime settings from the environment (and an
// optional .env file) for the bot, the worker and the local test tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mykytaterentiev/metaOfmBot/internal/params"
)

const (
	RegistryFile  = "file"
	RegistryRedis = "redis"

	ParamRandom = "random"
	ParamLinear = "linear"
)

type Config struct {
	BotToken   string
	RedisAddr  string
	DataDir    string
	HealthAddr string

	RegistryBackend  string
	RegistryPath     string
	RegistryRedisKey string

	FFmpegBin        string
	FFprobeBin       string
	ExiftoolBin      string
	TranscodeTimeout time.Duration
	ApplyTemperature bool

	MaxVariants int
	Concurrency int

	ParamMode     string
	ParamLow      float64
	ParamHigh     float64
	ParamMin      float64
	ParamMax      float64
	ParamAttempts int
}

/* ---------------------- env helpers ---------------------- */

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
func mustInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}
func mustFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if x, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return x
		}
	}
	return def
}
func mustBool(k string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return def
}
func mustDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

/* ---------------------- load ---------------------- */

// Load reads .env when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the process environment only.
func FromEnv() Config {
	d := params.DefaultConstraints()
	dataDir := getenv("DATA_DIR", "/data")
	return Config{
		BotToken:   os.Getenv("BOT_TOKEN"),
		RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
		DataDir:    dataDir,
		HealthAddr: getenv("HEALTH_ADDR", ":8080"),

		RegistryBackend:  strings.ToLower(getenv("REGISTRY_BACKEND", RegistryFile)),
		RegistryPath:     getenv("REGISTRY_PATH", filepath.Join(dataDir, "processed_files.json")),
		RegistryRedisKey: getenv("REGISTRY_REDIS_KEY", "metaofm:processed"),

		FFmpegBin:        getenv("FFMPEG_BIN", "ffmpeg"),
		FFprobeBin:       getenv("FFPROBE_BIN", "ffprobe"),
		ExiftoolBin:      getenv("EXIFTOOL_BIN", "exiftool"),
		TranscodeTimeout: mustDuration("TRANSCODE_TIMEOUT", 10*time.Minute),
		ApplyTemperature: mustBool("APPLY_TEMPERATURE", false),

		MaxVariants: mustInt("MAX_VARIANTS", 10),
		Concurrency: mustInt("CONCURRENCY", 2),

		ParamMode:     strings.ToLower(getenv("PARAM_MODE", ParamRandom)),
		ParamLow:      mustFloat("PARAM_LOW", d.Draw.Min),
		ParamHigh:     mustFloat("PARAM_HIGH", d.Draw.Max),
		ParamMin:      mustFloat("PARAM_MIN", d.Bound.Min),
		ParamMax:      mustFloat("PARAM_MAX", d.Bound.Max),
		ParamAttempts: mustInt("PARAM_ATTEMPTS", d.Attempts),
	}
}

// Constraints returns the random generator bounds.
func (c Config) Constraints() params.Constraints {
	return params.Constraints{
		Draw:     params.Range{Min: c.ParamLow, Max: c.ParamHigh},
		Bound:    params.Range{Min: c.ParamMin, Max: c.ParamMax},
		Attempts: c.ParamAttempts,
	}
}

// Batcher builds the parameter source selected by PARAM_MODE.
func (c Config) Batcher() (params.Batcher, error) {
	switch c.ParamMode {
	case ParamLinear:
		l := params.DefaultLinear()
		l.Bound = params.Range{Min: c.ParamMin, Max: c.ParamMax}
		return l, nil
	case ParamRandom, "":
		return params.NewGenerator(c.Constraints(), nil)
	}
	return nil, fmt.Errorf("unknown PARAM_MODE %q", c.ParamMode)
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.MaxVariants < 1 {
		errs = append(errs, fmt.Errorf("MAX_VARIANTS must be positive, got %d", c.MaxVariants))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("CONCURRENCY must be positive, got %d", c.Concurrency))
	}
	if c.TranscodeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("TRANSCODE_TIMEOUT must be positive, got %s", c.TranscodeTimeout))
	}
	switch c.RegistryBackend {
	case RegistryFile:
		if strings.TrimSpace(c.RegistryPath) == "" {
			errs = append(errs, errors.New("REGISTRY_PATH is required for the file registry"))
		}
	case RegistryRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown REGISTRY_BACKEND %q", c.RegistryBackend))
	}
	switch c.ParamMode {
	case ParamRandom, ParamLinear:
	default:
		errs = append(errs, fmt.Errorf("unknown PARAM_MODE %q", c.ParamMode))
	}
	if err := c.Constraints().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("parameter bounds: %w", err))
	}
	return errors.Join(errs...)
}
