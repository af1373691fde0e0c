package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/applypilot/internal/cache"
	"github.com/amishk599/applypilot/internal/config"
	"github.com/amishk599/applypilot/internal/generator"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "applypilot",
	Short: "Answer screening questions on job application forms",
	Long:  "ApplyPilot detects screening questions in a form snapshot, drafts answers from your profile, reuses answers you approved before, and fills the form.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: APPLYPILOT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > APPLYPILOT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("APPLYPILOT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupGenerator(cfg *config.Config, logger *slog.Logger) *generator.Generator {
	httpClient := &http.Client{Timeout: cfg.AI.Timeout}
	provider := generator.NewGeminiProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpClient)
	return generator.New(provider, generator.Options{
		MaxRetries: cfg.AI.MaxRetries,
		RetryDelay: cfg.AI.RetryDelay,
		Params: generator.GenerationParams{
			Temperature:     cfg.AI.Temperature,
			TopK:            cfg.AI.TopK,
			TopP:            cfg.AI.TopP,
			MaxOutputTokens: cfg.AI.MaxOutputTokens,
			SafetyThreshold: cfg.AI.SafetyThreshold,
		},
	}, logger)
}

// openCache builds the answer cache. An empty path or inMemory=true gives a
// non-persistent store; the caller must Close the returned store when it is
// a *cache.SQLiteStore.
func openCache(cfg *config.Config, inMemory bool, logger *slog.Logger) (*cache.AnswerCache, func(), error) {
	if inMemory || cfg.Cache.Path == "" {
		return cache.New(cache.NewMemoryStore(), logger), func() {}, nil
	}
	store, err := cache.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		return nil, nil, err
	}
	return cache.New(store, logger), func() { store.Close() }, nil
}
