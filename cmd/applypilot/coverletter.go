package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/applypilot/internal/model"
)

var (
	clCompany    string
	clTitle      string
	clDescFile   string
	clTone       string
	clMaxWords   int
	clHighlights []string
	clOut        string
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter",
	Short: "Draft a cover letter for a posting",
	Long:  "Drafts a cover letter from your profile and the given posting. Prints to stdout unless --out is set.",
	RunE:  runCoverLetter,
}

func init() {
	coverLetterCmd.Flags().StringVar(&clCompany, "company", "", "company name (required)")
	coverLetterCmd.Flags().StringVar(&clTitle, "title", "", "job title (required)")
	coverLetterCmd.Flags().StringVar(&clDescFile, "description", "", "path to a file with the job description")
	coverLetterCmd.Flags().StringVar(&clTone, "tone", "", "tone of voice, e.g. professional or enthusiastic")
	coverLetterCmd.Flags().IntVar(&clMaxWords, "max-words", 0, "approximate word limit (0 = default)")
	coverLetterCmd.Flags().StringArrayVar(&clHighlights, "highlight", nil, "achievement to weave in (repeatable)")
	coverLetterCmd.Flags().StringVarP(&clOut, "out", "o", "", "write the letter to this path instead of stdout")
	coverLetterCmd.MarkFlagRequired("company")
	coverLetterCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(coverLetterCmd)
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	job, err := jobFromFlags(clCompany, clTitle, clDescFile)
	if err != nil {
		logger.Error("failed to read job description", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := setupGenerator(cfg, logger)
	letter, err := gen.GenerateCoverLetter(ctx, model.CoverLetterInput{
		Profile:    cfg.Profile,
		Job:        job,
		Tone:       clTone,
		Highlights: clHighlights,
		MaxWords:   clMaxWords,
	})
	if err != nil {
		logger.Error("cover letter generation failed", "error", err)
		os.Exit(1)
	}

	return writeOutput(clOut, letter, logger)
}

// jobFromFlags assembles JobData from command-line flags, reading the
// description from a file when one is given.
func jobFromFlags(company, title, descFile string) (model.JobData, error) {
	job := model.JobData{Company: company, Title: title}
	if descFile != "" {
		data, err := os.ReadFile(descFile)
		if err != nil {
			return model.JobData{}, err
		}
		job.Description = string(data)
	}
	return job, nil
}

func writeOutput(path, text string, logger *slog.Logger) error {
	if path == "" {
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		logger.Error("failed to write output", "path", path, "error", err)
		os.Exit(1)
	}
	return nil
}
