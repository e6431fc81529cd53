package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FUSE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.driver", typ: kString, env: "FUSE_STORAGE_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Storage.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Driver },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FUSE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.database_url", typ: kString, env: "FUSE_DATABASE_URL",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Storage.DatabaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DatabaseURL },
	},
	{
		key: "log.level", typ: kString, env: "FUSE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "matching.concurrency", typ: kInt, env: "FUSE_MATCHING_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Matching.Concurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Matching.Concurrency },
	},
	{
		key: "matching.lazy_fetch", typ: kBool, env: "FUSE_MATCHING_LAZY_FETCH",
		apply:   func(cfg *Config, v any) { cfg.Matching.LazyFetch = v.(bool) },
		extract: func(cfg Config) any { return cfg.Matching.LazyFetch },
	},
	{
		key: "matching.location_filter", typ: kBool, env: "FUSE_MATCHING_LOCATION_FILTER",
		apply:   func(cfg *Config, v any) { cfg.Matching.LocationFilter = v.(bool) },
		extract: func(cfg Config) any { return cfg.Matching.LocationFilter },
	},
	{
		key: "scoring.weight_mbti", typ: kFloat, env: "FUSE_SCORING_WEIGHT_MBTI",
		apply:   func(cfg *Config, v any) { cfg.Scoring.WeightMBTI = v.(float64) },
		extract: func(cfg Config) any { return cfg.Scoring.WeightMBTI },
	},
	{
		key: "scoring.weight_traits", typ: kFloat, env: "FUSE_SCORING_WEIGHT_TRAITS",
		apply:   func(cfg *Config, v any) { cfg.Scoring.WeightTraits = v.(float64) },
		extract: func(cfg Config) any { return cfg.Scoring.WeightTraits },
	},
	{
		key: "scoring.weight_interests", typ: kFloat, env: "FUSE_SCORING_WEIGHT_INTERESTS",
		apply:   func(cfg *Config, v any) { cfg.Scoring.WeightInterests = v.(float64) },
		extract: func(cfg Config) any { return cfg.Scoring.WeightInterests },
	},
	{
		key: "scoring.weight_location", typ: kFloat, env: "FUSE_SCORING_WEIGHT_LOCATION",
		apply:   func(cfg *Config, v any) { cfg.Scoring.WeightLocation = v.(float64) },
		extract: func(cfg Config) any { return cfg.Scoring.WeightLocation },
	},
	{
		key: "scoring.weight_age", typ: kFloat, env: "FUSE_SCORING_WEIGHT_AGE",
		apply:   func(cfg *Config, v any) { cfg.Scoring.WeightAge = v.(float64) },
		extract: func(cfg Config) any { return cfg.Scoring.WeightAge },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		v, ok, err := readBackend(b, s)
		if errors.Is(err, errInvalidValue) {
			slog.Warn("config: unparseable stored value, using default", "key", s.key, "error", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if ok {
			s.apply(cfg, v)
		}
	}
	return nil
}

func readBackend(b ConfigBackend, s keySpec) (any, bool, error) {
	switch s.typ {
	case kInt:
		return unwrap(b.GetInt(s.key))
	case kBool:
		return unwrap(b.GetBool(s.key))
	case kFloat:
		return unwrap(b.GetFloat(s.key))
	default:
		return unwrap(b.GetString(s.key))
	}
}

func unwrap[T any](v T, ok bool, err error) (any, bool, error) {
	return v, ok, err
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("config: unparseable int env var, using default", "env", s.env, "value", raw, "error", err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				slog.Warn("config: unparseable bool env var, using default", "env", s.env, "value", raw, "error", err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				slog.Warn("config: unparseable float env var, using default", "env", s.env, "value", raw, "error", err)
			}
		}
	}
}
