package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"reelmark/internal/captions"
	"reelmark/internal/chapters"
	"reelmark/internal/config"
	"reelmark/internal/enrichment"
	"reelmark/internal/logging"
	"reelmark/internal/platform"
	"reelmark/internal/ratelimit"
	"reelmark/internal/speech"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// pipeline bundles everything an enrichment command needs.
type pipeline struct {
	cfg          *config.Config
	store        *enrichment.Store
	orchestrator *enrichment.Orchestrator
	logger       *slog.Logger
	logFile      io.Closer
}

func (p *pipeline) Close() {
	if p == nil {
		return
	}
	if p.store != nil {
		_ = p.store.Close()
	}
	if p.logFile != nil {
		_ = p.logFile.Close()
	}
}

// buildPipeline wires the platform client, caption chain, chapter
// extractor, optional speech fallback, process-wide rate gate, and the
// record store into one orchestrator.
func (c *commandContext) buildPipeline() (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	// Piped output gets the machine-readable format even when the config
	// asks for the console handler.
	format := cfg.Logging.Format
	if format == "console" && !stdoutIsTerminal() {
		format = "json"
	}
	logOut, logFile, err := logging.OpenLogFile(cfg.Paths.LogDir, "reelmark.log", os.Stdout)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: format,
		Output: logOut,
	})
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}

	store, err := enrichment.Open(cfg)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}
	cleanup := func() {
		_ = store.Close()
		if logFile != nil {
			_ = logFile.Close()
		}
	}

	client, err := platform.New(platform.Config{
		APIKey:  cfg.Platform.APIKey,
		BaseURL: cfg.Platform.BaseURL,
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.Platform.RequestTimeout) * time.Second,
		},
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	native := captions.NewNativeProvider(client, cfg.Enrichment.Languages, logger)
	chain := captions.NewChain(logger, native)
	extractor := chapters.NewExtractor(client, logger)

	var fallback enrichment.SpeechFallback
	if cfg.SpeechEnabled() {
		transcriber, err := speech.New(speech.Config{
			APIKey:  cfg.Speech.APIKey,
			BaseURL: cfg.Speech.BaseURL,
			Model:   cfg.Speech.Model,
			HTTPClient: &http.Client{
				Timeout: time.Duration(cfg.Speech.RequestTimeout) * time.Second,
			},
		})
		if err != nil {
			cleanup()
			return nil, err
		}
		fallback, err = enrichment.NewSpeechFallback(cfg, client, transcriber, nil, logger)
		if err != nil {
			cleanup()
			return nil, err
		}
	}

	gate, err := ratelimit.NewGate(cfg.Enrichment.MaxPlatformCalls)
	if err != nil {
		cleanup()
		return nil, err
	}

	orchestrator, err := enrichment.New(enrichment.Options{
		Config:   cfg,
		Store:    store,
		Metadata: client,
		Captions: chain,
		Chapters: extractor,
		Speech:   fallback,
		Gate:     gate,
		Logger:   logger,
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	return &pipeline{
		cfg:          cfg,
		store:        store,
		orchestrator: orchestrator,
		logger:       logger,
		logFile:      logFile,
	}, nil
}

// openStore opens just the record store, for read-only record commands.
func (c *commandContext) openStore() (*enrichment.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return enrichment.Open(cfg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
