// Package config loads outrights-predict's runtime configuration from a
// file, environment variables, and CLI flags, the way
// stormlightlabs-baseball's internal/config.Load layers viper over a
// typed Config struct.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jhw/outrights-predict/pkg/outrights"
)

// RuntimeConfig is the full set of options the CLI accepts: the pipeline's
// own Config plus the CLI-only settings needed to locate data and name the
// season being predicted.
type RuntimeConfig struct {
	Pipeline outrights.Config

	DataPath     string
	Season       string
	RedisURL     string
	CacheEnabled bool
}

// Load reads configuration from configPath (if non-empty), then
// OUTRIGHTS_-prefixed environment variables, then the spec.md §6 defaults,
// in viper's usual precedence order (explicit Set > flag > env > config file
// > default).
func Load(configPath string) (*RuntimeConfig, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("outrights")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.outrights")
	}

	defaults := outrights.DefaultConfig()
	v.SetDefault("pipeline.num_trials", defaults.NumTrials)
	v.SetDefault("pipeline.recency_decay_rate", defaults.RecencyDecayRate)
	v.SetDefault("pipeline.cup_winner_boost", defaults.CupWinnerBoost)
	v.SetDefault("pipeline.recent_form_window", defaults.RecentFormWindow)
	v.SetDefault("pipeline.bracket_policy", string(defaults.BracketPolicy))
	v.SetDefault("data.path", "")
	v.SetDefault("data.season", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("cache.enabled", false)

	v.SetEnvPrefix("OUTRIGHTS")
	v.AutomaticEnv()
	v.BindEnv("pipeline.num_trials", "OUTRIGHTS_NUM_TRIALS")
	v.BindEnv("pipeline.recency_decay_rate", "OUTRIGHTS_RECENCY_DECAY_RATE")
	v.BindEnv("pipeline.cup_winner_boost", "OUTRIGHTS_CUP_WINNER_BOOST")
	v.BindEnv("pipeline.recent_form_window", "OUTRIGHTS_RECENT_FORM_WINDOW")
	v.BindEnv("pipeline.bracket_policy", "OUTRIGHTS_BRACKET_POLICY")
	v.BindEnv("pipeline.seed", "OUTRIGHTS_SEED")
	v.BindEnv("data.path", "OUTRIGHTS_DATA_PATH")
	v.BindEnv("data.season", "OUTRIGHTS_SEASON")
	v.BindEnv("redis.url", "OUTRIGHTS_REDIS_URL")
	v.BindEnv("cache.enabled", "OUTRIGHTS_CACHE_ENABLED")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading outrights config file: %w", err)
		}
	}

	cfg := outrights.Config{
		NumTrials:        v.GetInt("pipeline.num_trials"),
		RecencyDecayRate: v.GetFloat64("pipeline.recency_decay_rate"),
		CupWinnerBoost:   v.GetFloat64("pipeline.cup_winner_boost"),
		RecentFormWindow: v.GetInt("pipeline.recent_form_window"),
		BracketPolicy:    outrights.BracketPolicy(v.GetString("pipeline.bracket_policy")),
	}
	if v.IsSet("pipeline.seed") {
		seed := v.GetInt64("pipeline.seed")
		cfg.Seed = &seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &RuntimeConfig{
		Pipeline:     cfg,
		DataPath:     v.GetString("data.path"),
		Season:       v.GetString("data.season"),
		RedisURL:     v.GetString("redis.url"),
		CacheEnabled: v.GetBool("cache.enabled"),
	}, nil
}
