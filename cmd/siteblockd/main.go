package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/haukened/siteblock/internal/block/common/clock"
	"github.com/haukened/siteblock/internal/block/common/log"
	"github.com/haukened/siteblock/internal/block/config"
	"github.com/haukened/siteblock/internal/block/domain"
	"github.com/haukened/siteblock/internal/block/gateways/extension"
	"github.com/haukened/siteblock/internal/block/gateways/fetch"
	"github.com/haukened/siteblock/internal/block/repos/blocklist"
	"github.com/haukened/siteblock/internal/block/repos/blocklist/bloom"
	"github.com/haukened/siteblock/internal/block/repos/blocklist/lru"
	"github.com/haukened/siteblock/internal/block/repos/kvstore"
	"github.com/haukened/siteblock/internal/block/repos/kvstore/bolt"
	"github.com/haukened/siteblock/internal/block/repos/settings"
	"github.com/haukened/siteblock/internal/block/services/engine"
)

const (
	version = "0.1.0-dev"
	appName = "siteblockd"
)

// Application holds all the components of the blocking daemon
type Application struct {
	config *config.AppConfig
	store  kvstore.Store
	rules  blocklist.Repository
	bridge *extension.Server
	engine *engine.Engine
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":        version,
		"env":            cfg.Env,
		"log_level":      cfg.LogLevel,
		"listen":         cfg.Listen,
		"db_path":        cfg.DBPath,
		"content_source": cfg.ContentSource,
	}, "Starting "+appName)

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Daemon failed")
	}

	log.Info(nil, appName+" stopped gracefully")
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	repos, err := buildRepositories(cfg, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}

	gw, err := buildGateways(cfg, repos.store, logger)
	if err != nil {
		_ = repos.store.Close()
		return nil, fmt.Errorf("failed to build gateways: %w", err)
	}

	eng := engine.New(engine.Options{
		Rules:           repos.rules,
		Settings:        repos.settings,
		Tabs:            gw.bridge,
		Content:         gw.content,
		Prompter:        gw.bridge,
		Clock:           clk,
		Logger:          logger,
		WarningPage:     cfg.WarningPage,
		ExtensionOrigin: cfg.ExtensionOrigin,
	})
	gw.bridge.SetHandler(eng)

	return &Application{
		config: cfg,
		store:  repos.store,
		rules:  repos.rules,
		bridge: gw.bridge,
		engine: eng,
	}, nil
}

// repositories holds all repository implementations
type repositories struct {
	store    kvstore.Store
	settings *settings.Repository
	rules    blocklist.Repository
}

// gateways holds all gateway implementations
type gateways struct {
	bridge  *extension.Server
	content engine.ContentAccessor
}

// buildRepositories opens the persisted store and builds the rule store on top of it.
func buildRepositories(cfg *config.AppConfig, clk clock.Clock, logger log.Logger) (*repositories, error) {
	store, err := bolt.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	cache, err := lru.New(cfg.RuleCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create rule cache: %w", err)
	}
	log.Info(map[string]any{
		"type": "LRU",
		"size": cfg.RuleCacheSize,
	}, "Rule decision cache configured")

	rules := blocklist.NewRepository(blocklist.Options{
		Factory: bloom.NewFactory(),
		Cache:   cache,
		FPRate:  cfg.BloomFPRate,
		Clock:   clk,
		Logger:  logger,
	})

	return &repositories{
		store:    store,
		settings: settings.New(store, logger),
		rules:    rules,
	}, nil
}

// buildGateways creates the extension bridge and the page content accessor.
func buildGateways(cfg *config.AppConfig, store kvstore.Store, logger log.Logger) (*gateways, error) {
	bridge := extension.New(extension.Options{
		Store:          store,
		Logger:         logger,
		CommandTimeout: cfg.CommandTimeout,
		PromptTimeout:  cfg.PromptTimeout,
		Origin:         cfg.ExtensionOrigin,
	})

	var content engine.ContentAccessor
	switch cfg.ContentSource {
	case "extension":
		content = bridge
	case "fetch":
		content = fetch.New(fetch.Options{Timeout: cfg.FetchTimeout})
	default:
		return nil, fmt.Errorf("unknown content source %q", cfg.ContentSource)
	}

	log.Info(map[string]any{
		"source":          cfg.ContentSource,
		"command_timeout": cfg.CommandTimeout,
		"prompt_timeout":  cfg.PromptTimeout,
	}, "Extension bridge configured")

	return &gateways{bridge: bridge, content: content}, nil
}

// Run loads persisted state, starts reacting to storage changes and serves the
// extension bridge until ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	defer func() {
		if err := app.store.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing store")
		}
	}()

	if err := app.engine.Load(ctx); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	stats := app.rules.Stats()
	log.Info(map[string]any{
		"hostnames":  stats.Hostnames,
		"urls":       stats.URLs,
		"skipped":    stats.Skipped,
		"cache_size": stats.Cache.Capacity,
	}, "Rule store loaded")

	unsubscribe := app.store.Subscribe(func(c domain.Change) {
		if err := app.engine.HandleChange(ctx, c); err != nil {
			log.Warn(map[string]any{"key": c.Key, "error": err}, "Failed to apply storage change")
		}
	})
	defer unsubscribe()

	log.Info(map[string]any{"address": app.config.Listen}, "Daemon started")

	if err := app.bridge.ListenAndServe(ctx, app.config.Listen); err != nil {
		return fmt.Errorf("failed to serve extension bridge: %w", err)
	}

	log.Info(nil, "Shutdown initiated")
	return nil
}
