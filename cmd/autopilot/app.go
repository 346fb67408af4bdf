package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soypete/autopilot/pkg/config"
	"github.com/soypete/autopilot/pkg/database"
	"github.com/soypete/autopilot/pkg/images"
	"github.com/soypete/autopilot/pkg/jobs"
	"github.com/soypete/autopilot/pkg/links"
	"github.com/soypete/autopilot/pkg/llm"
	"github.com/soypete/autopilot/pkg/logger"
	"github.com/soypete/autopilot/pkg/pipeline"
	"github.com/soypete/autopilot/pkg/progress"
	"github.com/soypete/autopilot/pkg/publish"
	"github.com/soypete/autopilot/pkg/storage"
	"github.com/soypete/autopilot/pkg/youtube"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	store    storage.Store
	jobs     jobs.Manager
	bus      progress.Bus
	pipeline *pipeline.Pipeline
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return logger.New(cfg.Log.Mode, level)
}

// openStore opens the configured store and migrates SQL databases.
func openStore(ctx context.Context, cfg *config.Config) (*database.DB, storage.Store, error) {
	if cfg.Database.Driver == "memory" {
		return nil, storage.NewMemoryStore(), nil
	}
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, storage.NewSQLStore(db), nil
}

func buildImages(cfg *config.Config) images.Chain {
	var chain images.Chain
	for _, name := range cfg.Images.Providers {
		switch name {
		case "openai":
			if cfg.LLM.APIKey == "" {
				continue
			}
			chain = append(chain, images.NewOpenAIGenerator(images.OpenAIConfig{
				APIKey:     cfg.LLM.APIKey,
				Model:      cfg.Images.Model,
				Timeout:    2 * time.Minute,
				MaxRetries: cfg.LLM.MaxRetries,
			}))
		case "pexels":
			if cfg.Images.PexelsAPIKey == "" {
				continue
			}
			chain = append(chain, images.NewStockGenerator(cfg.Images.PexelsAPIKey, "", 30*time.Second))
		}
	}
	return chain
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	a.db, a.store, err = openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if a.db == nil {
		a.jobs = jobs.NewMemoryManager()
	} else {
		a.jobs = jobs.NewStoreManager(a.store)
	}

	if cfg.Redis.Addr != "" {
		bus, err := progress.NewRedisBus(progress.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Hour,
		}, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.bus = bus
	} else {
		a.bus = progress.NewMemoryBus(0, time.Hour)
	}

	backend, err := llm.NewBackend(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	fetcher := links.NewFetcher(links.DefaultFetcherConfig())
	deps := pipeline.Deps{
		LLM:        backend,
		Store:      a.store,
		Jobs:       a.jobs,
		Sitemaps:   links.NewSitemapSource(fetcher),
		Discoverer: links.NewDiscoverer(fetcher),
		YouTube:    youtube.NewClient(cfg.YouTube.APIKey, ""),
		Publishers: publish.NewFactory(cfg.Publish, a.store),
		Logger:     log,
	}
	if chain := buildImages(cfg); len(chain) > 0 {
		deps.Images = chain
	}
	if cfg.Images.MirrorDir != "" {
		mirror, err := images.NewMirror(images.MirrorConfig{
			Dir:        cfg.Images.MirrorDir,
			PublicBase: strings.TrimRight(cfg.Server.PublicBaseURL, "/") + "/media",
			MaxWidth:   cfg.Images.MaxWidth,
			Timeout:    time.Minute,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Mirror = mirror
	}

	a.pipeline, err = pipeline.New(deps, pipeline.OptionsFromConfig(cfg))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the bus and the database.
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn("Failed to close progress bus", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("Failed to close store", "error", err)
		}
	}
	a.log.Sync()
}
