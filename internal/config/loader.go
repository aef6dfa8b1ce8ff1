package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/mlgrade/internal/domain/scoring"
)

// Environment variable names.
const (
	EnvPrefix     = "MLGRADE_"
	EnvConfigFile = EnvPrefix + "CONFIG"

	// envCandidateURL is the unprefixed variable the grading portal sets.
	envCandidateURL = "CANDIDATE_URL"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) at path, or at $MLGRADE_CONFIG when path is empty
//  3. env (prefix MLGRADE_; CANDIDATE_URL when MLGRADE_CANDIDATE_URL is unset)
//
// When only validation fails the populated Config is returned together with
// ErrInvalidConfig, so callers can still apply overrides or find the output path.
func Load(_ context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	if v := os.Getenv(envCandidateURL); v != "" && os.Getenv(EnvPrefix+"CANDIDATE_URL") == "" {
		if err := k.Set("candidate_url", v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// MLGRADE_INGEST_TIMEOUT_MS -> ingest_timeout_ms (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	// The config path itself is not a config key.
	k.Delete("config")

	cfg := *New()
	if k.Exists("rules") {
		cfg.Rules = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if k.Exists("rules") && cfg.Rules == nil {
		cfg.Rules = []scoring.Rule{}
	}

	if err := cfg.Validate(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}
