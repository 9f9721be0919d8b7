package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mykytaterentiev/metaOfmBot/internal/params"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/meta")
	cfg := FromEnv()

	if cfg.RegistryPath != "/srv/meta/processed_files.json" {
		t.Fatalf("expected registry under data dir, got %q", cfg.RegistryPath)
	}
	if cfg.TranscodeTimeout != 10*time.Minute {
		t.Fatalf("expected 10m timeout, got %s", cfg.TranscodeTimeout)
	}
	if cfg.MaxVariants != 10 || cfg.Concurrency != 2 {
		t.Fatalf("unexpected limits %d/%d", cfg.MaxVariants, cfg.Concurrency)
	}
	if cfg.Constraints() != params.DefaultConstraints() {
		t.Fatalf("expected default constraints, got %+v", cfg.Constraints())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("REGISTRY_BACKEND", "Redis")
	t.Setenv("TRANSCODE_TIMEOUT", "90s")
	t.Setenv("APPLY_TEMPERATURE", "yes")
	t.Setenv("PARAM_LOW", "0.95")
	t.Setenv("PARAM_HIGH", "1.05")
	t.Setenv("MAX_VARIANTS", "not-a-number")

	cfg := FromEnv()
	if cfg.RegistryBackend != RegistryRedis {
		t.Fatalf("expected redis backend, got %q", cfg.RegistryBackend)
	}
	if cfg.TranscodeTimeout != 90*time.Second || !cfg.ApplyTemperature {
		t.Fatalf("unexpected transcode settings %s %v", cfg.TranscodeTimeout, cfg.ApplyTemperature)
	}
	if cfg.ParamLow != 0.95 || cfg.ParamHigh != 1.05 {
		t.Fatalf("unexpected draw range %v-%v", cfg.ParamLow, cfg.ParamHigh)
	}
	if cfg.MaxVariants != 10 {
		t.Fatalf("expected unparsable int to keep default, got %d", cfg.MaxVariants)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := FromEnv()
	cfg.RegistryBackend = "sqlite"
	cfg.ParamMode = "spiral"
	cfg.ParamLow = 0.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"REGISTRY_BACKEND", "PARAM_MODE", "parameter bounds"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestBatcherSelectsMode(t *testing.T) {
	cfg := FromEnv()

	cfg.ParamMode = ParamLinear
	b, err := cfg.Batcher()
	if err != nil {
		t.Fatalf("linear batcher: %v", err)
	}
	if _, ok := b.(params.Linear); !ok {
		t.Fatalf("expected params.Linear, got %T", b)
	}

	cfg.ParamMode = ParamRandom
	if b, err = cfg.Batcher(); err != nil {
		t.Fatalf("random batcher: %v", err)
	}
	if _, ok := b.(*params.Generator); !ok {
		t.Fatalf("expected *params.Generator, got %T", b)
	}

	cfg.ParamAttempts = 0
	if _, err := cfg.Batcher(); err == nil || errors.Unwrap(err) == nil {
		t.Fatalf("expected wrapped constraint error, got %v", err)
	}
}
