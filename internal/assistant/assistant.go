package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/amishk599/applypilot/internal/cache"
	"github.com/amishk599/applypilot/internal/detector"
	"github.com/amishk599/applypilot/internal/model"
)

// typingDelay is the fixed pace for simulated typing.
const typingDelay = 30 * time.Millisecond

// AnswerGenerator produces an answer for one question.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, q model.ScreeningQuestion, profile model.UserProfile, job model.JobData) (*model.GeneratedAnswer, error)
}

// AnswerCache is the subset of the cache the orchestrator uses.
type AnswerCache interface {
	FindAnswers(question string, qtype model.QuestionType, opts cache.FindOptions) ([]model.CacheMatch, error)
	SaveAnswer(question string, qtype model.QuestionType, answer string, rating *int, job *cache.JobContext) (string, error)
	RecordUsage(id string) error
}

// BatchOptions controls GenerateAllAnswers.
type BatchOptions struct {
	SkipFilled   bool    // skip questions whose field already has a value
	DisableCache bool    // never consult the cache
	Threshold    float64 // cache-hit similarity floor; 0 = DefaultAutoApplyThreshold
	// OnProgress is invoked after each question resolves with the number
	// answered so far, the total, and the question text.
	OnProgress func(answered, total int, question string)
}

// BatchResult reports a batch run. Per-question failures land in Errors;
// they never abort the batch.
type BatchResult struct {
	Answers   []*model.GeneratedAnswer
	Errors    []*model.GenerationError
	FromCache []*model.GeneratedAnswer
	Generated []*model.GeneratedAnswer
}

// FillOptions controls FillForm.
type FillOptions struct {
	SkipFilled     bool
	SimulateTyping bool          // type character by character at 30ms per rune
	FieldDelay     time.Duration // optional pause between fields
	// Only restricts the pass to these question ids. Nil means all
	// answered questions; questions outside the set are skipped.
	Only map[string]bool
}

// FieldSkip records a field left untouched and why.
type FieldSkip struct {
	QuestionID string
	Reason     string
}

// FieldError records a field that failed to fill.
type FieldError struct {
	QuestionID string
	Err        error
}

// FillReport summarizes a fill pass.
type FillReport struct {
	Filled  []string // question ids
	Skipped []FieldSkip
	Errors  []FieldError
}

// Assistant coordinates detection, cache-first answer generation, user
// edits, persistence, and form filling. One instance serves one form; at
// most one batch runs at a time.
type Assistant struct {
	detector  *detector.Detector
	generator AnswerGenerator
	cache     AnswerCache // nil disables caching entirely
	adapter   model.FieldAdapter
	logger    *slog.Logger

	questions []model.ScreeningQuestion

	// answers preserves insertion order; at most one live answer per
	// question id. Regeneration replaces the mapping entry.
	answerOrder []string
	answers     map[string]*model.GeneratedAnswer

	busy  atomic.Bool
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires an Assistant. cache may be nil to disable answer reuse.
func New(det *detector.Detector, gen AnswerGenerator, answerCache AnswerCache, adapter model.FieldAdapter, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		detector:  det,
		generator: gen,
		cache:     answerCache,
		adapter:   adapter,
		logger:    logger,
		answers:   make(map[string]*model.GeneratedAnswer),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// DetectQuestions scans the form and records the screening questions found,
// in document order. Re-running replaces the previous detection pass.
func (a *Assistant) DetectQuestions() ([]model.ScreeningQuestion, error) {
	questions, err := a.detector.DetectAll(a.adapter)
	if err != nil {
		return nil, err
	}
	a.questions = questions
	a.logger.Info("detected screening questions", "count", len(questions))
	return questions, nil
}

// Questions returns the questions from the last detection pass.
func (a *Assistant) Questions() []model.ScreeningQuestion {
	return a.questions
}

// Answer returns the live answer for a question, if any.
func (a *Assistant) Answer(questionID string) (*model.GeneratedAnswer, bool) {
	ans, ok := a.answers[questionID]
	return ans, ok
}

// Answers returns all live answers in the order they were first resolved.
func (a *Assistant) Answers() []*model.GeneratedAnswer {
	out := make([]*model.GeneratedAnswer, 0, len(a.answerOrder))
	for _, id := range a.answerOrder {
		if ans, ok := a.answers[id]; ok {
			out = append(out, ans)
		}
	}
	return out
}

// GenerateAllAnswers resolves every detected question in detection order,
// consulting the cache first unless disabled. A second call while one batch
// is running fails fast with ErrBatchInFlight. Cancellation is honored
// between questions; answers already collected stay valid and are returned
// alongside ctx.Err().
func (a *Assistant) GenerateAllAnswers(ctx context.Context, profile model.UserProfile, job model.JobData, opts BatchOptions) (*BatchResult, error) {
	if !a.busy.CompareAndSwap(false, true) {
		return nil, model.ErrBatchInFlight
	}
	defer a.busy.Store(false)

	result := &BatchResult{}
	total := len(a.questions)

	for _, q := range a.questions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if opts.SkipFilled && strings.TrimSpace(q.CurrentValue) != "" {
			continue
		}

		ans, err := a.resolve(ctx, q, profile, job, !opts.DisableCache, opts.Threshold)
		if err != nil {
			genErr := asGenerationError(q, err)
			result.Errors = append(result.Errors, genErr)
			a.logger.Warn("question failed", "question", q.Question, "error", err)
			continue
		}

		a.setAnswer(ans)
		result.Answers = append(result.Answers, ans)
		if ans.FromCache {
			result.FromCache = append(result.FromCache, ans)
		} else {
			result.Generated = append(result.Generated, ans)
		}

		if opts.OnProgress != nil {
			opts.OnProgress(len(result.Answers), total, q.Question)
		}
	}

	a.logger.Info("batch complete",
		"answered", len(result.Answers),
		"from_cache", len(result.FromCache),
		"generated", len(result.Generated),
		"failed", len(result.Errors),
	)
	return result, nil
}

// GenerateSingleAnswer resolves one question with the same cache-then-
// generate logic as the batch flow.
func (a *Assistant) GenerateSingleAnswer(ctx context.Context, questionID string, profile model.UserProfile, job model.JobData) (*model.GeneratedAnswer, error) {
	q, ok := a.question(questionID)
	if !ok {
		return nil, fmt.Errorf("unknown question %q", questionID)
	}

	ans, err := a.resolve(ctx, q, profile, job, true, 0)
	if err != nil {
		return nil, err
	}
	a.setAnswer(ans)
	return ans, nil
}

// RegenerateAnswer always calls the generator, bypassing the cache even
// when a similar entry exists. The new answer replaces the previous one.
func (a *Assistant) RegenerateAnswer(ctx context.Context, questionID string, profile model.UserProfile, job model.JobData) (*model.GeneratedAnswer, error) {
	q, ok := a.question(questionID)
	if !ok {
		return nil, fmt.Errorf("unknown question %q", questionID)
	}

	ans, err := a.resolve(ctx, q, profile, job, false, 0)
	if err != nil {
		return nil, err
	}
	a.setAnswer(ans)
	return ans, nil
}

// UpdateAnswer replaces the stored answer text with a user edit and marks
// it edited. Returns false when no answer exists yet for the question.
func (a *Assistant) UpdateAnswer(questionID, text string) bool {
	ans, ok := a.answers[questionID]
	if !ok {
		return false
	}
	now := a.now()
	ans.Answer = text
	ans.UserEdited = true
	ans.EditedAt = &now
	return true
}

// SaveAnswerToCache persists the question's current answer for future
// reuse. Answers that came from the cache are not re-cached; the call is a
// no-op returning an empty id.
func (a *Assistant) SaveAnswerToCache(questionID string, rating *int, job *cache.JobContext) (string, error) {
	ans, ok := a.answers[questionID]
	if !ok {
		return "", model.ErrNoAnswer
	}
	if ans.FromCache {
		return "", nil
	}
	if a.cache == nil {
		return "", fmt.Errorf("no answer cache configured")
	}
	return a.cache.SaveAnswer(ans.Question, ans.QuestionType, ans.Answer, rating, job)
}

// FillForm writes every answered question into its form field. A single
// field failure never aborts the pass; refilling an already-filled answer
// just overwrites the value.
func (a *Assistant) FillForm(ctx context.Context, opts FillOptions) (*FillReport, error) {
	report := &FillReport{}

	for i, q := range a.questions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ans, ok := a.answers[q.ID]
		if !ok {
			report.Skipped = append(report.Skipped, FieldSkip{QuestionID: q.ID, Reason: "no answer generated"})
			continue
		}

		if opts.Only != nil && !opts.Only[q.ID] {
			report.Skipped = append(report.Skipped, FieldSkip{QuestionID: q.ID, Reason: "not selected"})
			continue
		}

		if opts.SkipFilled {
			fc, err := a.adapter.ReadContext(q.Locator)
			if err == nil && strings.TrimSpace(fc.Value) != "" {
				report.Skipped = append(report.Skipped, FieldSkip{QuestionID: q.ID, Reason: "field already has a value"})
				continue
			}
		}

		if err := a.fillField(ctx, q.Locator, ans.Answer, opts.SimulateTyping); err != nil {
			report.Errors = append(report.Errors, FieldError{QuestionID: q.ID, Err: err})
			continue
		}
		report.Filled = append(report.Filled, q.ID)

		if opts.FieldDelay > 0 && i < len(a.questions)-1 {
			if err := a.sleep(ctx, opts.FieldDelay); err != nil {
				return report, err
			}
		}
	}

	a.logger.Info("form filled",
		"filled", len(report.Filled),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors),
	)
	return report, nil
}

// ValidateProfile checks that the profile carries what the detected
// questions need. Returns nil when complete; otherwise a ValidationError
// listing each missing field with a recommendation.
func (a *Assistant) ValidateProfile(profile model.UserProfile) *model.ValidationError {
	var missing, recs []string

	if strings.TrimSpace(profile.FirstName) == "" {
		missing = append(missing, "firstName")
		recs = append(recs, "Add your first name to the profile.")
	}
	if strings.TrimSpace(profile.LastName) == "" {
		missing = append(missing, "lastName")
		recs = append(recs, "Add your last name to the profile.")
	}
	if strings.TrimSpace(profile.Email) == "" {
		missing = append(missing, "email")
		recs = append(recs, "Add a contact email to the profile.")
	}

	if a.anyRequiresResume() {
		if profile.YearsExperience <= 0 {
			missing = append(missing, "yearsExperience")
			recs = append(recs, "Set years of experience; resume-based questions reference it.")
		}
		if len(profile.Skills) == 0 {
			missing = append(missing, "skills")
			recs = append(recs, "List your key skills; resume-based questions draw on them.")
		}
		if strings.TrimSpace(profile.Summary) == "" {
			missing = append(missing, "summary")
			recs = append(recs, "Write a short experience summary for resume-based questions.")
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return &model.ValidationError{Missing: missing, Recommendations: recs}
}

// resolve runs the cache-then-generate logic for one question.
func (a *Assistant) resolve(ctx context.Context, q model.ScreeningQuestion, profile model.UserProfile, job model.JobData, useCache bool, threshold float64) (*model.GeneratedAnswer, error) {
	if useCache && a.cache != nil {
		if threshold <= 0 {
			threshold = cache.DefaultAutoApplyThreshold
		}
		matches, err := a.cache.FindAnswers(q.Question, q.Type, cache.FindOptions{Limit: 1, Threshold: threshold})
		if err != nil {
			// Cache trouble degrades to a miss; generation still works.
			a.logger.Warn("cache lookup failed", "question", q.Question, "error", err)
		} else if len(matches) > 0 {
			m := matches[0]
			if err := a.cache.RecordUsage(m.Entry.ID); err != nil {
				a.logger.Warn("recording cache usage failed", "id", m.Entry.ID, "error", err)
			}
			a.logger.Debug("cache hit", "question", q.Question, "similarity", m.Similarity)
			return &model.GeneratedAnswer{
				QuestionID:   q.ID,
				Question:     q.Question,
				QuestionType: q.Type,
				Answer:       m.Entry.Answer,
				FromCache:    true,
				CacheID:      m.Entry.ID,
				Similarity:   m.Similarity,
				GeneratedAt:  a.now(),
				Confidence:   m.Similarity,
			}, nil
		}
	}

	return a.generator.GenerateAnswer(ctx, q, profile, job)
}

// fillField sets the field value, either atomically or one rune at a time,
// then fires the host's change-notification sequence.
func (a *Assistant) fillField(ctx context.Context, locator, value string, simulateTyping bool) error {
	if simulateTyping {
		runes := []rune(value)
		for i := 1; i <= len(runes); i++ {
			if err := a.adapter.SetValue(locator, string(runes[:i])); err != nil {
				return err
			}
			if err := a.adapter.NotifyChanged(locator); err != nil {
				return err
			}
			if i < len(runes) {
				if err := a.sleep(ctx, typingDelay); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := a.adapter.SetValue(locator, value); err != nil {
		return err
	}
	return a.adapter.NotifyChanged(locator)
}

func (a *Assistant) setAnswer(ans *model.GeneratedAnswer) {
	if _, exists := a.answers[ans.QuestionID]; !exists {
		a.answerOrder = append(a.answerOrder, ans.QuestionID)
	}
	a.answers[ans.QuestionID] = ans
}

func (a *Assistant) question(id string) (model.ScreeningQuestion, bool) {
	for _, q := range a.questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.ScreeningQuestion{}, false
}

func (a *Assistant) anyRequiresResume() bool {
	for _, q := range a.questions {
		if q.RequiresResume {
			return true
		}
	}
	return false
}

func asGenerationError(q model.ScreeningQuestion, err error) *model.GenerationError {
	var genErr *model.GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}
	return &model.GenerationError{QuestionID: q.ID, Question: q.Question, Err: err}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
