package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"uxrmate/internal/analysis"
	"uxrmate/internal/config"
	"uxrmate/internal/logging"
	"uxrmate/internal/media/ffprobe"
	"uxrmate/internal/preflight"
	"uxrmate/internal/services/gemini"
	"uxrmate/internal/store"
)

// analyzerFactory builds the inference client for a run.
type analyzerFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analysis.Analyzer, error)

// completerFactory builds the client for text-only generation.
type completerFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analysis.Completer, error)

// Factories below are replaced in tests.
var (
	defaultAnalyzer  analyzerFactory  = newGeminiAnalyzer
	defaultCompleter completerFactory = newGeminiCompleter
	defaultProber                     = newFFprobe
)

func newGeminiAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analysis.Analyzer, error) {
	return gemini.NewClient(ctx, gemini.ConfigFrom(cfg), gemini.WithLogger(logger))
}

func newGeminiCompleter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analysis.Completer, error) {
	return gemini.NewClient(ctx, gemini.ConfigFrom(cfg), gemini.WithLogger(logger))
}

func newFFprobe(cfg *config.Config) *ffprobe.Prober {
	return ffprobe.New(cfg.Video.ProbeBinary)
}

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	storeOnce sync.Once
	store     *store.Store
	storeErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	newAnalyzer  analyzerFactory
	newCompleter completerFactory
	newProber    func(cfg *config.Config) *ffprobe.Prober
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		newAnalyzer:  defaultAnalyzer,
		newCompleter: defaultCompleter,
		newProber:    defaultProber,
	}
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
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*store.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		c.store, c.storeErr = store.Open(cfg)
	})
	return c.store, c.storeErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// completer builds the text generation client after a local credential
// check, so a missing key fails before any network setup.
func (c *commandContext) completer(ctx context.Context) (analysis.Completer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if check := preflight.CheckCredential("Gemini API key", cfg.Gemini.APIKey); !check.Passed {
		return nil, fmt.Errorf("gemini API key %s", check.Detail)
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return c.newCompleter(ctx, cfg, logger)
}

// withStore runs fn with the opened store and the command's context.
func (c *commandContext) withStore(cmd *cobra.Command, fn func(context.Context, *store.Store) error) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}
	return fn(cmd.Context(), st)
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	c.storeOnce = sync.Once{}
	if err != nil {
		return errors.Join(errors.New("close store"), err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
