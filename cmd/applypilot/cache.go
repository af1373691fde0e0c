package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/applypilot/internal/cache"
	"github.com/amishk599/applypilot/internal/config"
	"github.com/amishk599/applypilot/internal/detector"
	"github.com/amishk599/applypilot/internal/model"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the answer cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached answers",
	RunE:  runCacheClear,
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one cached answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheDelete,
}

var cacheFindCmd = &cobra.Command{
	Use:   "find <question>",
	Short: "Suggest cached answers for a question",
	Long:  "Classifies the question, then lists cached answers of the same type at the suggestion threshold (cache.preview_threshold, looser than the auto-apply floor used when filling).",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheFind,
}

var cacheRateCmd = &cobra.Command{
	Use:   "rate <id> <rating>",
	Short: "Rate a cached answer from 1 to 5",
	Long:  "Rate a cached answer from 1 to 5. Higher-rated answers win ties when several cached answers match a question equally well.",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheRate,
}

var (
	cacheClearYes bool
	cacheFindMax  int
)

func init() {
	cacheClearCmd.Flags().BoolVarP(&cacheClearYes, "yes", "y", false, "skip the confirmation prompt")
	cacheFindCmd.Flags().IntVarP(&cacheFindMax, "limit", "n", 5, "max suggestions to show")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheDeleteCmd, cacheFindCmd, cacheRateCmd)
	rootCmd.AddCommand(cacheCmd)
}

// withCache opens the configured cache, runs fn, and closes the store.
func withCache(fn func(c *cache.AnswerCache, cfg *config.Config) error) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Cache.Path == "" {
		logger.Error("no cache path configured, set cache.path in the config")
		os.Exit(1)
	}

	c, closeCache, err := openCache(cfg, false, logger)
	if err != nil {
		logger.Error("failed to open answer cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	return fn(c, cfg)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	return withCache(func(c *cache.AnswerCache, cfg *config.Config) error {
		stats, err := c.GetStatistics()
		if err != nil {
			return fmt.Errorf("read statistics: %w", err)
		}

		fmt.Printf("Cached answers: %d\n", stats.Total)
		fmt.Printf("Total reuses:   %d\n", stats.TotalUsage)
		if stats.RatedEntries > 0 {
			fmt.Printf("Average rating: %.1f (%d rated)\n", stats.AverageRating, stats.RatedEntries)
		}

		if len(stats.PerType) > 0 {
			fmt.Println("\nBy question type:")
			types := make([]model.QuestionType, 0, len(stats.PerType))
			for qt := range stats.PerType {
				types = append(types, qt)
			}
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
			for _, qt := range types {
				fmt.Printf("  %-20s %d\n", qt, stats.PerType[qt])
			}
		}
		return nil
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return withCache(func(c *cache.AnswerCache, cfg *config.Config) error {
		if !cacheClearYes {
			fmt.Print("Delete ALL cached answers? [y/N] ")
			var reply string
			fmt.Scanln(&reply)
			if reply != "y" && reply != "Y" {
				fmt.Println("Aborted.")
				return nil
			}
		}
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Println("Cache cleared.")
		return nil
	})
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	return withCache(func(c *cache.AnswerCache, cfg *config.Config) error {
		if err := c.DeleteAnswer(args[0]); err != nil {
			return fmt.Errorf("delete answer: %w", err)
		}
		fmt.Printf("Deleted %s.\n", args[0])
		return nil
	})
}

func runCacheFind(cmd *cobra.Command, args []string) error {
	return withCache(func(c *cache.AnswerCache, cfg *config.Config) error {
		qtype, _ := detector.New().Classify(args[0])

		matches, err := c.FindAnswers(args[0], qtype, cache.FindOptions{
			Limit:     cacheFindMax,
			Threshold: cfg.Cache.PreviewThreshold,
		})
		if err != nil {
			return fmt.Errorf("find answers: %w", err)
		}
		if len(matches) == 0 {
			fmt.Printf("No cached answers of type %s above similarity %.2f.\n", qtype, cfg.Cache.PreviewThreshold)
			return nil
		}

		fmt.Printf("Suggestions for %q (type %s):\n\n", args[0], qtype)
		for _, m := range matches {
			rating := "-"
			if m.Entry.Rating != nil {
				rating = strconv.Itoa(*m.Entry.Rating)
			}
			fmt.Printf("%s  similarity %.2f  rating %s  used %d\n", m.Entry.ID, m.Similarity, rating, m.Entry.UsageCount)
			fmt.Printf("  Q: %s\n", m.Entry.Question)
			fmt.Printf("  A: %s\n\n", firstLine(m.Entry.Answer, 100))
		}
		return nil
	})
}

// firstLine returns the first line of s, cut to max characters.
func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = s[:max-3] + "..."
	}
	return s
}

func runCacheRate(cmd *cobra.Command, args []string) error {
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("rating must be a number: %w", err)
	}
	return withCache(func(c *cache.AnswerCache, cfg *config.Config) error {
		if err := c.UpdateRating(args[0], rating); err != nil {
			return fmt.Errorf("rate answer: %w", err)
		}
		fmt.Printf("Rated %s: %d.\n", args[0], rating)
		return nil
	})
}
