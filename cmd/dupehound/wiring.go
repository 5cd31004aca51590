package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dupehound/dupehound/internal/config"
	"github.com/dupehound/dupehound/internal/engine"
	"github.com/dupehound/dupehound/internal/github"
	"github.com/dupehound/dupehound/internal/index"
	"github.com/dupehound/dupehound/internal/storage"
)

// runtime bundles the collaborators a command needs, so each command
// body stays close to its actual work.
type runtime struct {
	engine     *engine.Engine
	store      storage.Store
	index      index.Index
	github     *github.Client
	thresholds *config.Thresholds
}

func (r *runtime) Close() {
	if r.index != nil {
		r.index.Close()
	}
	if r.store != nil {
		r.store.Close()
	}
}

// newRuntime builds the engine and its collaborators from loaded config.
// withGitHub controls whether a token is required; local-only commands
// (groups, config) skip it.
func newRuntime(ctx context.Context, withGitHub bool) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rules, thresholds, err := loadAnalysisConfig(cfg)
	if err != nil {
		return nil, err
	}

	storeLogger := logrus.New()
	if verbose {
		storeLogger.SetLevel(logrus.DebugLevel)
	}

	rt := &runtime{thresholds: thresholds}

	switch cfg.Storage.Type {
	case "postgres":
		rt.store, err = storage.NewPostgresStore(cfg.Storage.PostgresDSN, storeLogger)
	default:
		rt.store, err = storage.NewSQLiteStore(cfg.Storage.LocalPath, storeLogger)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	switch cfg.Index.Type {
	case "redis":
		rt.index, err = index.NewRedisIndex(ctx, cfg.Index.RedisHost, cfg.Index.RedisPort,
			cfg.Index.RedisPassword, cfg.Index.BucketTTL, logger.Component("index"))
	default:
		rt.index, err = index.NewBoltIndex(cfg.Index.LocalPath, cfg.Index.BucketTTL, logger.Component("index"))
	}
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	rt.engine, err = engine.New(rules, thresholds, rt.index, rt.store, logger.Component("engine"))
	if err != nil {
		rt.Close()
		return nil, err
	}

	if withGitHub {
		token, err := config.ResolveGitHubToken(cfg)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.github = github.NewClient(token, cfg.GitHub.RateLimit)
	}

	return rt, nil
}

func loadAnalysisConfig(cfg *config.Config) (*config.ClassificationRules, *config.Thresholds, error) {
	rules := config.DefaultRules()
	if cfg.RulesFile != "" {
		var err error
		rules, err = config.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, nil, err
		}
	}

	thresholds := config.DefaultThresholds()
	if cfg.ThresholdsFile != "" {
		var err error
		thresholds, err = config.LoadThresholds(cfg.ThresholdsFile)
		if err != nil {
			return nil, nil, err
		}
	}

	return rules, thresholds, nil
}

// parseRepo splits OWNER/NAME.
func parseRepo(arg string) (owner, name string, err error) {
	parts := strings.Split(arg, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q (want OWNER/NAME)", arg)
	}
	return parts[0], parts[1], nil
}
