// Command outrights-predict fits the post-season prediction pipeline
// against a historical data file and emits per-team qualification, round,
// and championship probabilities for a target season. Grounded on
// stormlightlabs-baseball's cmd package: a cobra root command with
// subcommands, each resolving shared configuration via internal/config and
// logging through a shared internal/telemetry logger.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jhw/outrights-predict/internal/artifactcache"
	"github.com/jhw/outrights-predict/internal/config"
	"github.com/jhw/outrights-predict/internal/telemetry"
	"github.com/jhw/outrights-predict/pkg/outrights"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "outrights-predict",
		Short: "Post-season prediction pipeline for a hockey league",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default: ./outrights.yaml)")
	cmd.AddCommand(predictCmd(&configPath), backtestCmd(&configPath))
	return cmd
}

func predictCmd(configPath *string) *cobra.Command {
	var dataPath, season string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Fit the pipeline and predict the current season's post-season outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.Context(), *configPath, dataPath, season)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "path to the season data JSON file (overrides config)")
	cmd.Flags().StringVar(&season, "season", "", "season ID to predict (overrides config)")
	return cmd
}

func backtestCmd(configPath *string) *cobra.Command {
	var dataPath string
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run leave-one-season-out backtesting over the full data file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(cmd.Context(), *configPath, dataPath)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "path to the season data JSON file (overrides config)")
	return cmd
}

func loadRuntime(configPath, dataPathFlag, seasonFlag string) (*config.RuntimeConfig, *outrights.StaticLoader, error) {
	rc, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dataPathFlag != "" {
		rc.DataPath = dataPathFlag
	}
	if seasonFlag != "" {
		rc.Season = seasonFlag
	}
	if rc.DataPath == "" {
		return nil, nil, fmt.Errorf("no data path configured (set --data or OUTRIGHTS_DATA_PATH)")
	}

	loader := outrights.NewStaticLoader(outrights.DefaultAliasTable())
	if err := loader.LoadSeasonsFromJSON(rc.DataPath); err != nil {
		return nil, nil, err
	}
	return rc, loader, nil
}

func runPredict(ctx context.Context, configPath, dataPathFlag, seasonFlag string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rc, loader, err := loadRuntime(configPath, dataPathFlag, seasonFlag)
	if err != nil {
		return err
	}
	if rc.Season == "" {
		return fmt.Errorf("no season configured (set --season or OUTRIGHTS_SEASON)")
	}

	logger := telemetry.New()
	pipeline, err := outrights.NewPipeline(rc.Pipeline, loader, outrights.DefaultAliasTable(), telemetry.Progress(logger))
	if err != nil {
		return err
	}

	var cache *artifactcache.Cache
	var cacheKey string
	if rc.CacheEnabled && rc.RedisURL != "" {
		cache, err = artifactcache.New(rc.RedisURL)
		if err != nil {
			logger.Warn("artifact cache unavailable, continuing without it", "error", err)
		} else {
			defer cache.Close()
			training, err := loader.LoadTraining(ctx)
			if err == nil {
				seasons := make([]string, 0, len(training))
				seen := map[string]bool{}
				for _, ts := range training {
					if !seen[ts.Season] {
						seen[ts.Season] = true
						seasons = append(seasons, ts.Season)
					}
				}
				cacheKey = artifactcache.Key(seasons, rc.Pipeline) + ":" + rc.Season
				if cached, err := cache.Get(ctx, cacheKey); err == nil && cached != nil {
					logger.Info("serving prediction from artifact cache", "season", rc.Season)
					return emitArtifact(cached)
				}
			}
		}
	}

	if warnings, err := pipeline.Fit(ctx); err != nil {
		return err
	} else {
		for _, w := range warnings {
			logger.Warn(w)
		}
	}

	artifact, err := pipeline.Predict(ctx, rc.Season)
	if err != nil {
		return err
	}

	if cache != nil && cacheKey != "" {
		if err := cache.Set(ctx, cacheKey, artifact); err != nil {
			logger.Warn("failed to write artifact cache", "error", err)
		}
	}

	return emitArtifact(artifact)
}

func runBacktest(ctx context.Context, configPath, dataPathFlag string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rc, loader, err := loadRuntime(configPath, dataPathFlag, "")
	if err != nil {
		return err
	}

	logger := telemetry.New()
	training, err := loader.LoadTraining(ctx)
	if err != nil {
		return err
	}

	backtester := outrights.NewBacktester(rc.Pipeline, outrights.DefaultAliasTable(), telemetry.Progress(logger))
	report, err := backtester.Run(ctx, training)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func emitArtifact(artifact *outrights.PipelineArtifact) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(artifact)
}
