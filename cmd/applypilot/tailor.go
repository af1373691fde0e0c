package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/applypilot/internal/model"
)

var (
	tailorCompany  string
	tailorTitle    string
	tailorDescFile string
	tailorOut      string
)

var tailorCmd = &cobra.Command{
	Use:   "tailor <resume.txt>",
	Short: "Rewrite a resume against a posting",
	Long:  "Reorders and rephrases a plain-text resume to emphasize what the posting asks for. Facts are never invented; only emphasis changes.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTailor,
}

func init() {
	tailorCmd.Flags().StringVar(&tailorCompany, "company", "", "company name (required)")
	tailorCmd.Flags().StringVar(&tailorTitle, "title", "", "job title (required)")
	tailorCmd.Flags().StringVar(&tailorDescFile, "description", "", "path to a file with the job description")
	tailorCmd.Flags().StringVarP(&tailorOut, "out", "o", "", "write the tailored resume to this path instead of stdout")
	tailorCmd.MarkFlagRequired("company")
	tailorCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(tailorCmd)
}

func runTailor(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	resume, err := os.ReadFile(args[0])
	if err != nil {
		logger.Error("failed to read resume", "error", err)
		os.Exit(1)
	}

	job, err := jobFromFlags(tailorCompany, tailorTitle, tailorDescFile)
	if err != nil {
		logger.Error("failed to read job description", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := setupGenerator(cfg, logger)
	tailored, err := gen.TailorResume(ctx, model.ResumeTailorInput{
		Profile:    cfg.Profile,
		Job:        job,
		ResumeText: string(resume),
	})
	if err != nil {
		logger.Error("resume tailoring failed", "error", err)
		os.Exit(1)
	}

	return writeOutput(tailorOut, tailored, logger)
}
