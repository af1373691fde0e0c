package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/applypilot/internal/assistant"
	"github.com/amishk599/applypilot/internal/cache"
	"github.com/amishk599/applypilot/internal/detector"
	"github.com/amishk599/applypilot/internal/form"
	"github.com/amishk599/applypilot/internal/model"
	"github.com/amishk599/applypilot/internal/review"
)

var (
	answerOut     string
	answerNoCache bool
	answerReview  bool
	answerDryRun  bool
)

var answerCmd = &cobra.Command{
	Use:   "answer <snapshot.json>",
	Short: "Answer screening questions in a form snapshot",
	Long:  "Detects screening questions in a form snapshot, generates answers from your profile, fills the fields, and saves new answers to the cache for reuse.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnswer,
}

func init() {
	answerCmd.Flags().StringVarP(&answerOut, "out", "o", "", "write the filled snapshot to this path (default: overwrite input)")
	answerCmd.Flags().BoolVar(&answerNoCache, "no-cache", false, "never reuse cached answers")
	answerCmd.Flags().BoolVar(&answerReview, "review", false, "review answers in a TUI before filling")
	answerCmd.Flags().BoolVar(&answerDryRun, "dry-run", false, "generate and print answers without filling or persisting anything")
	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	adapter, err := form.LoadSnapshot(args[0])
	if err != nil {
		logger.Error("failed to load snapshot", "error", err)
		os.Exit(1)
	}

	answerCache, closeCache, err := openCache(cfg, answerDryRun, logger)
	if err != nil {
		logger.Error("failed to open answer cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	gen := setupGenerator(cfg, logger)
	a := assistant.New(detector.New(), gen, answerCache, adapter, logger)

	questions, err := a.DetectQuestions()
	if err != nil {
		logger.Error("question detection failed", "error", err)
		os.Exit(1)
	}
	if len(questions) == 0 {
		logger.Info("no screening questions found in snapshot")
		return nil
	}
	logger.Info("questions detected", "count", len(questions))

	if verr := a.ValidateProfile(cfg.Profile); verr != nil {
		logger.Error("profile incomplete", "missing", verr.Missing)
		for _, rec := range verr.Recommendations {
			fmt.Fprintf(os.Stderr, "  - %s\n", rec)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := a.GenerateAllAnswers(ctx, cfg.Profile, adapter.Job(), assistant.BatchOptions{
		SkipFilled:   cfg.Fill.SkipFilled,
		DisableCache: answerNoCache,
		Threshold:    cfg.Cache.AutoApplyThreshold,
		OnProgress: func(answered, total int, question string) {
			logger.Info("answered", "progress", fmt.Sprintf("%d/%d", answered, total), "question", question)
		},
	})
	if err != nil {
		logger.Error("answer generation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("generation complete",
		"answered", len(result.Answers),
		"from_cache", len(result.FromCache),
		"generated", len(result.Generated),
		"failed", len(result.Errors),
	)
	for _, genErr := range result.Errors {
		logger.Warn("question failed", "question", genErr.Question, "attempts", genErr.Attempts, "error", genErr.Err)
	}

	if answerDryRun {
		printAnswers(a)
		logger.Info("dry-run complete, nothing was filled or persisted")
		return nil
	}

	fillOpts := assistant.FillOptions{
		SkipFilled:     cfg.Fill.SkipFilled,
		SimulateTyping: cfg.Fill.SimulateTyping,
		FieldDelay:     cfg.Fill.FieldDelay,
	}

	if answerReview {
		accepted, ok, err := reviewAnswers(a)
		if err != nil {
			logger.Error("review failed", "error", err)
			os.Exit(1)
		}
		if !ok {
			logger.Info("review aborted, nothing was filled")
			return nil
		}
		fillOpts.Only = accepted
	}

	report, err := a.FillForm(ctx, fillOpts)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("form fill failed", "error", err)
		os.Exit(1)
	}
	for _, skip := range report.Skipped {
		logger.Debug("field skipped", "question_id", skip.QuestionID, "reason", skip.Reason)
	}
	for _, ferr := range report.Errors {
		logger.Warn("field failed", "question_id", ferr.QuestionID, "error", ferr.Err)
	}

	saveFilledAnswers(a, report.Filled, adapter.Job(), logger)

	outPath := answerOut
	if outPath == "" {
		outPath = args[0]
	}
	if err := adapter.Save(outPath); err != nil {
		logger.Error("failed to write snapshot", "path", outPath, "error", err)
		os.Exit(1)
	}
	logger.Info("snapshot written", "path", outPath, "filled", len(report.Filled))
	return nil
}

// saveFilledAnswers persists freshly generated answers that made it into the
// form. Cache hits are skipped; re-saving them would duplicate entries.
func saveFilledAnswers(a *assistant.Assistant, filled []string, job model.JobData, logger *slog.Logger) {
	jc := &cache.JobContext{Company: job.Company, Title: job.Title}
	for _, id := range filled {
		ans, ok := a.Answer(id)
		if !ok || ans.FromCache {
			continue
		}
		if _, err := a.SaveAnswerToCache(id, nil, jc); err != nil {
			logger.Warn("failed to cache answer", "question_id", id, "error", err)
		}
	}
}

func reviewAnswers(a *assistant.Assistant) (map[string]bool, bool, error) {
	var items []review.Item
	for _, q := range a.Questions() {
		ans, _ := a.Answer(q.ID)
		items = append(items, review.Item{Question: q, Answer: ans})
	}
	result, err := review.Run(items)
	if err != nil {
		return nil, false, err
	}
	if result.Aborted {
		return nil, false, nil
	}
	return result.Accepted, true, nil
}

func printAnswers(a *assistant.Assistant) {
	for _, q := range a.Questions() {
		ans, ok := a.Answer(q.ID)
		if !ok {
			continue
		}
		source := fmt.Sprintf("generated, confidence %.2f", ans.Confidence)
		if ans.FromCache {
			source = fmt.Sprintf("cached, similarity %.2f", ans.Similarity)
		}
		fmt.Printf("\n── %s [%s] (%s)\n%s\n", q.Question, q.Type, source, ans.Answer)
	}
}
