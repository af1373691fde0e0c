package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/amishk599/applypilot/internal/model"
)

// ErrEmptyCompletion marks a completion that came back empty or
// whitespace-only. Treated like any other failure: retried, then surfaced.
var ErrEmptyCompletion = errors.New("completion returned empty text")

// Options tunes the generator. Zero values fall back to defaults.
type Options struct {
	MaxRetries int           // total attempts per call, default 3
	RetryDelay time.Duration // multiplied by the failed attempt number, default 1s
	Params     GenerationParams
}

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// DefaultParams are the generation parameters used when none are configured.
var DefaultParams = GenerationParams{
	Temperature:     0.7,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 1024,
	SafetyThreshold: "BLOCK_MEDIUM_AND_ABOVE",
}

// Generator renders type-specific prompts and calls the completion endpoint
// with retry. One instance serves answers, cover letters, and resume
// tailoring; only the prompt differs.
type Generator struct {
	provider   CompletionProvider
	maxRetries int
	retryDelay time.Duration
	params     GenerationParams
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a Generator over the given provider.
func New(provider CompletionProvider, opts Options, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		provider:   provider,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		params:     opts.Params,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepCtx,
	}
	if g.maxRetries <= 0 {
		g.maxRetries = defaultMaxRetries
	}
	if g.retryDelay <= 0 {
		g.retryDelay = defaultRetryDelay
	}
	if g.params == (GenerationParams{}) {
		g.params = DefaultParams
	}
	return g
}

// GenerateAnswer produces an answer for one screening question.
func (g *Generator) GenerateAnswer(ctx context.Context, q model.ScreeningQuestion, profile model.UserProfile, job model.JobData) (*model.GeneratedAnswer, error) {
	prompt, err := buildAnswerPrompt(q, profile, job)
	if err != nil {
		return nil, err
	}

	raw, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, &model.GenerationError{
			QuestionID: q.ID,
			Question:   q.Question,
			Attempts:   g.maxRetries,
			Err:        err,
		}
	}

	answer := postProcess(raw, q.MaxLength)
	return &model.GeneratedAnswer{
		QuestionID:   q.ID,
		Question:     q.Question,
		QuestionType: q.Type,
		Answer:       answer,
		GeneratedAt:  g.now(),
		TokenCount:   estimateTokens(answer),
		Confidence:   confidence(answer, q),
	}, nil
}

// GenerateCoverLetter drafts a cover letter using the shared context and
// retry machinery.
func (g *Generator) GenerateCoverLetter(ctx context.Context, in model.CoverLetterInput) (string, error) {
	prompt, err := buildCoverLetterPrompt(in)
	if err != nil {
		return "", err
	}
	raw, err := g.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating cover letter: %w", err)
	}
	return collapseNewlines(strings.TrimSpace(raw)), nil
}

// TailorResume rewrites a resume against the posting.
func (g *Generator) TailorResume(ctx context.Context, in model.ResumeTailorInput) (string, error) {
	prompt, err := buildResumeTailorPrompt(in)
	if err != nil {
		return "", err
	}
	raw, err := g.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("tailoring resume: %w", err)
	}
	return collapseNewlines(strings.TrimSpace(raw)), nil
}

// complete calls the provider with linear backoff: after failed attempt n it
// waits retryDelay*n. Empty text counts as a failure. The last error is
// propagated when all attempts fail.
func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		if attempt > 1 {
			delay := g.retryDelay * time.Duration(attempt-1)
			g.logger.Warn("retrying completion",
				"attempt", attempt,
				"max_retries", g.maxRetries,
				"delay", delay,
				"error", lastErr,
			)
			if err := g.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		text, err := g.provider.Complete(ctx, prompt, g.params)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyCompletion
		}
		if err == nil {
			return text, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry cancelled: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// postProcess trims, collapses newline runs, and truncates to maxLength.
func postProcess(raw string, maxLength int) string {
	answer := collapseNewlines(strings.TrimSpace(raw))
	if maxLength > 0 {
		answer = truncateToSentences(answer, maxLength)
	}
	return answer
}

func collapseNewlines(s string) string {
	return excessNewlines.ReplaceAllString(s, "\n\n")
}

// truncateToSentences returns the longest prefix of whole sentences that
// fits in maxLength-10 characters. When not even the first sentence fits it
// hard-truncates to maxLength-3 and appends "...", so the result is exactly
// maxLength long. Caps too small to hold the ellipsis fall back to a bare
// hard cut.
func truncateToSentences(answer string, maxLength int) string {
	if len(answer) <= maxLength {
		return answer
	}

	limit := maxLength - 10
	var b strings.Builder
	for _, sentence := range splitSentences(answer) {
		if b.Len()+len(sentence) > limit {
			break
		}
		b.WriteString(sentence)
	}

	if b.Len() == 0 {
		// Caps of 3 or fewer leave no room for the ellipsis; the host
		// supplies MaxLength verbatim, so tiny caps do occur.
		if maxLength <= 3 {
			return answer[:maxLength]
		}
		return answer[:maxLength-3] + "..."
	}
	return strings.TrimRight(b.String(), " ")
}

// splitSentences cuts after ". ", "! ", "? ", keeping the terminator and the
// trailing space with each sentence.
func splitSentences(s string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(s)-1; i++ {
		c := s[i]
		if (c == '.' || c == '!' || c == '?') && s[i+1] == ' ' {
			sentences = append(sentences, s[start:i+2])
			start = i + 2
		}
	}
	if start < len(s) {
		sentences = append(sentences, s[start:])
	}
	return sentences
}

// confidence is a cheap heuristic over the finished answer. Starts at 0.70;
// longer, concrete, example-bearing answers score higher. Capped at 1.0.
func confidence(answer string, q model.ScreeningQuestion) float64 {
	score := 0.70
	if len(answer) > 200 {
		score += 0.10
	}
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "example") || strings.Contains(lower, "specifically") {
		score += 0.05
	}
	if strings.ContainsAny(answer, "0123456789") {
		score += 0.05
	}
	if q.RequiresResume {
		score += 0.05
	}
	return math.Min(score, 1.0)
}

// estimateTokens approximates the token count as ceil(len/4).
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
