package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/applypilot/internal/cache"
	"github.com/amishk599/applypilot/internal/detector"
	"github.com/amishk599/applypilot/internal/model"
)

// fakeAdapter is an in-memory form for orchestrator tests.
type fakeAdapter struct {
	order     []string
	fields    map[string]model.FieldContext
	setCalls  []string // every SetValue argument, in order
	notifies  int
	failField string // SetValue on this locator fails
}

func newFakeAdapter(fields map[string]model.FieldContext, order ...string) *fakeAdapter {
	return &fakeAdapter{order: order, fields: fields}
}

func (f *fakeAdapter) ListFields() ([]string, error) { return f.order, nil }

func (f *fakeAdapter) ReadContext(loc string) (model.FieldContext, error) {
	fc, ok := f.fields[loc]
	if !ok {
		return model.FieldContext{}, errors.New("unknown field")
	}
	return fc, nil
}

func (f *fakeAdapter) SetValue(loc, v string) error {
	if loc == f.failField {
		return errors.New("host rejected value")
	}
	fc := f.fields[loc]
	fc.Value = v
	f.fields[loc] = fc
	f.setCalls = append(f.setCalls, v)
	return nil
}

func (f *fakeAdapter) NotifyChanged(string) error {
	f.notifies++
	return nil
}

// stubGenerator answers from a canned function.
type stubGenerator struct {
	mu    sync.Mutex
	calls int
	fn    func(q model.ScreeningQuestion) (*model.GeneratedAnswer, error)
	block chan struct{} // when non-nil, Complete blocks until closed
}

func (g *stubGenerator) GenerateAnswer(_ context.Context, q model.ScreeningQuestion, _ model.UserProfile, _ model.JobData) (*model.GeneratedAnswer, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.block != nil {
		<-g.block
	}
	if g.fn != nil {
		return g.fn(q)
	}
	return &model.GeneratedAnswer{
		QuestionID:   q.ID,
		Question:     q.Question,
		QuestionType: q.Type,
		Answer:       "generated answer for " + q.Question,
		GeneratedAt:  time.Now(),
		Confidence:   0.8,
	}, nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func testFields() (map[string]model.FieldContext, []string) {
	return map[string]model.FieldContext{
		"f1": {Label: "Why do you want to work here?"},
		"f2": {Label: "What are your salary expectations?"},
	}, []string{"f1", "f2"}
}

func newTestAssistant(t *testing.T, gen AnswerGenerator, answerCache AnswerCache, adapter model.FieldAdapter) *Assistant {
	t.Helper()
	a := New(detector.New(), gen, answerCache, adapter, nil)
	a.sleep = func(context.Context, time.Duration) error { return nil }
	if _, err := a.DetectQuestions(); err != nil {
		t.Fatalf("DetectQuestions: %v", err)
	}
	return a
}

func realCache(t *testing.T) *cache.AnswerCache {
	t.Helper()
	return cache.New(cache.NewMemoryStore(), nil)
}

func TestGenerateAllAnswersCacheMissGeneratesAll(t *testing.T) {
	fields, order := testFields()
	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, realCache(t), newFakeAdapter(fields, order...))

	result, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{})
	if err != nil {
		t.Fatalf("GenerateAllAnswers: %v", err)
	}
	if len(result.Answers) != 2 || len(result.Generated) != 2 || len(result.FromCache) != 0 {
		t.Errorf("answers/generated/cached = %d/%d/%d", len(result.Answers), len(result.Generated), len(result.FromCache))
	}
	if gen.callCount() != 2 {
		t.Errorf("generator called %d times, want 2", gen.callCount())
	}
}

func TestGenerateAllAnswersCacheHitSkipsGenerator(t *testing.T) {
	fields, order := testFields()
	c := realCache(t)
	cacheID, err := c.SaveAnswer("Why do you want to work here?", model.TypeCompanyInterest, "cached answer", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, c, newFakeAdapter(fields, order...))

	result, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{})
	if err != nil {
		t.Fatalf("GenerateAllAnswers: %v", err)
	}
	if len(result.FromCache) != 1 || len(result.Generated) != 1 {
		t.Fatalf("cached/generated = %d/%d, want 1/1", len(result.FromCache), len(result.Generated))
	}

	hit := result.FromCache[0]
	if !hit.FromCache || hit.CacheID != cacheID {
		t.Errorf("cache hit not marked: %+v", hit)
	}
	if hit.Similarity < cache.DefaultAutoApplyThreshold {
		t.Errorf("similarity %v below auto-apply threshold", hit.Similarity)
	}
	if hit.Answer != "cached answer" {
		t.Errorf("Answer = %q", hit.Answer)
	}
	// One generator call for the salary question only.
	if gen.callCount() != 1 {
		t.Errorf("generator called %d times, want 1", gen.callCount())
	}

	// Usage was recorded on the hit.
	stats, _ := c.GetStatistics()
	if stats.TotalUsage != 1 {
		t.Errorf("TotalUsage = %d, want 1", stats.TotalUsage)
	}
}

func TestGenerateAllAnswersDisableCache(t *testing.T) {
	fields, order := testFields()
	c := realCache(t)
	if _, err := c.SaveAnswer("Why do you want to work here?", model.TypeCompanyInterest, "cached", nil, nil); err != nil {
		t.Fatal(err)
	}

	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, c, newFakeAdapter(fields, order...))

	result, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{DisableCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.FromCache) != 0 {
		t.Errorf("cache consulted despite DisableCache")
	}
	if gen.callCount() != 2 {
		t.Errorf("generator called %d times, want 2", gen.callCount())
	}
}

func TestGenerateAllAnswersFailureIsolation(t *testing.T) {
	fields, order := testFields()
	gen := &stubGenerator{fn: func(q model.ScreeningQuestion) (*model.GeneratedAnswer, error) {
		if q.Type == model.TypeCompanyInterest {
			return nil, &model.GenerationError{QuestionID: q.ID, Question: q.Question, Attempts: 3, Err: errors.New("endpoint down")}
		}
		return &model.GeneratedAnswer{QuestionID: q.ID, Question: q.Question, QuestionType: q.Type, Answer: "ok"}, nil
	}}
	a := newTestAssistant(t, gen, nil, newFakeAdapter(fields, order...))

	result, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{})
	if err != nil {
		t.Fatalf("batch must not fail on per-question errors: %v", err)
	}
	if len(result.Answers) != 1 {
		t.Errorf("answers = %d, want 1", len(result.Answers))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(result.Errors))
	}
	if result.Errors[0].Question != "Why do you want to work here?" {
		t.Errorf("error question = %q", result.Errors[0].Question)
	}
}

func TestGenerateAllAnswersSingleFlight(t *testing.T) {
	fields, order := testFields()
	gen := &stubGenerator{block: make(chan struct{})}
	a := newTestAssistant(t, gen, nil, newFakeAdapter(fields, order...))

	done := make(chan *BatchResult, 1)
	go func() {
		result, _ := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{})
		done <- result
	}()

	// Wait until the first batch is inside the generator.
	for gen.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	_, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{})
	if !errors.Is(err, model.ErrBatchInFlight) {
		t.Fatalf("second call err = %v, want ErrBatchInFlight", err)
	}

	close(gen.block)
	result := <-done
	if len(result.Answers) != 2 {
		t.Errorf("first batch answered %d, want 2 (unaffected by rejected call)", len(result.Answers))
	}

	// Guard must be released after the batch finishes.
	if _, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{}); err != nil {
		t.Errorf("third call after completion: %v", err)
	}
}

func TestGenerateAllAnswersGuardReleasedOnCancel(t *testing.T) {
	fields, order := testFields()
	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, nil, newFakeAdapter(fields, order...))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.GenerateAllAnswers(ctx, model.UserProfile{}, model.JobData{}, BatchOptions{}); err == nil {
		t.Fatal("expected ctx error")
	}

	if _, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{}); err != nil {
		t.Errorf("guard leaked after cancelled batch: %v", err)
	}
}

func TestGenerateAllAnswersSkipFilled(t *testing.T) {
	fields := map[string]model.FieldContext{
		"f1": {Label: "Why do you want to work here?", Value: "already answered"},
		"f2": {Label: "What are your salary expectations?"},
	}
	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, nil, newFakeAdapter(fields, "f1", "f2"))

	result, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{SkipFilled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Answers) != 1 {
		t.Errorf("answers = %d, want 1 (prefilled question skipped)", len(result.Answers))
	}
	if gen.callCount() != 1 {
		t.Errorf("generator called %d times, want 1", gen.callCount())
	}
}

func TestProgressCallbackMonotonic(t *testing.T) {
	fields, order := testFields()
	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, nil, newFakeAdapter(fields, order...))

	var counts []int
	var totals []int
	_, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{
		OnProgress: func(answered, total int, _ string) {
			counts = append(counts, answered)
			totals = append(totals, total)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 || counts[0] != 1 || counts[1] != 2 {
		t.Errorf("progress counts = %v, want [1 2]", counts)
	}
	for _, total := range totals {
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
	}
}

func TestRegenerateAnswerBypassesCache(t *testing.T) {
	fields, order := testFields()
	c := realCache(t)
	if _, err := c.SaveAnswer("Why do you want to work here?", model.TypeCompanyInterest, "cached", nil, nil); err != nil {
		t.Fatal(err)
	}

	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, c, newFakeAdapter(fields, order...))

	qID := a.Questions()[0].ID

	// First resolution is a cache hit.
	first, err := a.GenerateSingleAnswer(context.Background(), qID, model.UserProfile{}, model.JobData{})
	if err != nil {
		t.Fatal(err)
	}
	if !first.FromCache {
		t.Fatal("expected initial cache hit")
	}

	// Regeneration must ignore the cached entry.
	regen, err := a.RegenerateAnswer(context.Background(), qID, model.UserProfile{}, model.JobData{})
	if err != nil {
		t.Fatal(err)
	}
	if regen.FromCache {
		t.Error("regenerated answer marked fromCache")
	}
	if gen.callCount() != 1 {
		t.Errorf("generator called %d times, want 1", gen.callCount())
	}

	// The mapping entry was replaced, not duplicated.
	live, ok := a.Answer(qID)
	if !ok || live != regen {
		t.Error("live answer was not replaced by regeneration")
	}
	if got := len(a.Answers()); got != 1 {
		t.Errorf("live answers = %d, want 1", got)
	}
}

func TestUpdateAnswer(t *testing.T) {
	fields, order := testFields()
	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, nil, newFakeAdapter(fields, order...))

	qID := a.Questions()[0].ID
	if a.UpdateAnswer(qID, "edit before generation") {
		t.Fatal("UpdateAnswer must fail when no answer exists")
	}

	if _, err := a.GenerateSingleAnswer(context.Background(), qID, model.UserProfile{}, model.JobData{}); err != nil {
		t.Fatal(err)
	}
	if !a.UpdateAnswer(qID, "my own words") {
		t.Fatal("UpdateAnswer failed for existing answer")
	}

	ans, _ := a.Answer(qID)
	if ans.Answer != "my own words" {
		t.Errorf("Answer = %q", ans.Answer)
	}
	if !ans.UserEdited || ans.EditedAt == nil {
		t.Error("edit flags not set")
	}
}

func TestSaveAnswerToCache(t *testing.T) {
	fields, order := testFields()
	c := realCache(t)
	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, c, newFakeAdapter(fields, order...))

	qID := a.Questions()[0].ID

	if _, err := a.SaveAnswerToCache(qID, nil, nil); !errors.Is(err, model.ErrNoAnswer) {
		t.Errorf("err = %v, want ErrNoAnswer before generation", err)
	}

	if _, err := a.GenerateSingleAnswer(context.Background(), qID, model.UserProfile{}, model.JobData{}); err != nil {
		t.Fatal(err)
	}
	id, err := a.SaveAnswerToCache(qID, nil, &cache.JobContext{Company: "Acme"})
	if err != nil {
		t.Fatalf("SaveAnswerToCache: %v", err)
	}
	if id == "" {
		t.Fatal("expected a cache id")
	}

	// Resolving the same question again is now a cache hit; re-caching a
	// cache hit is a no-op.
	hit, err := a.GenerateSingleAnswer(context.Background(), qID, model.UserProfile{}, model.JobData{})
	if err != nil {
		t.Fatal(err)
	}
	if !hit.FromCache {
		t.Fatal("expected cache hit on second resolution")
	}
	id2, err := a.SaveAnswerToCache(qID, nil, nil)
	if err != nil {
		t.Fatalf("no-op save returned error: %v", err)
	}
	if id2 != "" {
		t.Errorf("re-caching a cache hit returned id %q, want empty", id2)
	}
	stats, _ := c.GetStatistics()
	if stats.Total != 1 {
		t.Errorf("cache entries = %d, want 1", stats.Total)
	}
}

func TestFillFormWritesAnswersAndNotifies(t *testing.T) {
	fields, order := testFields()
	adapter := newFakeAdapter(fields, order...)
	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, nil, adapter)

	if _, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{}); err != nil {
		t.Fatal(err)
	}

	report, err := a.FillForm(context.Background(), FillOptions{})
	if err != nil {
		t.Fatalf("FillForm: %v", err)
	}
	if len(report.Filled) != 2 {
		t.Errorf("filled = %d, want 2", len(report.Filled))
	}
	if adapter.notifies != 2 {
		t.Errorf("notifications = %d, want 2", adapter.notifies)
	}
	fc, _ := adapter.ReadContext("f1")
	if !strings.HasPrefix(fc.Value, "generated answer") {
		t.Errorf("field value = %q", fc.Value)
	}
}

func TestFillFormSkipsAndErrors(t *testing.T) {
	fields := map[string]model.FieldContext{
		"f1": {Label: "Why do you want to work here?"},
		"f2": {Label: "What are your salary expectations?", Value: "prefilled"},
		"f3": {Label: "What is your earliest start date?"},
	}
	adapter := newFakeAdapter(fields, "f1", "f2", "f3")
	adapter.failField = "f1"
	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, nil, adapter)

	// Answer f1 and f2 only; f3 stays unanswered.
	for _, q := range a.Questions()[:2] {
		if _, err := a.GenerateSingleAnswer(context.Background(), q.ID, model.UserProfile{}, model.JobData{}); err != nil {
			t.Fatal(err)
		}
	}

	report, err := a.FillForm(context.Background(), FillOptions{SkipFilled: true})
	if err != nil {
		t.Fatalf("FillForm: %v", err)
	}
	if len(report.Errors) != 1 || report.Errors[0].QuestionID != "q-f1" {
		t.Errorf("errors = %+v, want one for q-f1", report.Errors)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("skipped = %+v, want 2", report.Skipped)
	}
	reasons := map[string]string{}
	for _, s := range report.Skipped {
		reasons[s.QuestionID] = s.Reason
	}
	if !strings.Contains(reasons["q-f2"], "already") {
		t.Errorf("q-f2 reason = %q", reasons["q-f2"])
	}
	if !strings.Contains(reasons["q-f3"], "no answer") {
		t.Errorf("q-f3 reason = %q", reasons["q-f3"])
	}
}

func TestFillFormOnlySelected(t *testing.T) {
	fields := map[string]model.FieldContext{
		"f1": {Label: "Why do you want to work here?"},
		"f2": {Label: "What is your earliest start date?"},
	}
	adapter := newFakeAdapter(fields, "f1", "f2")
	gen := &stubGenerator{}
	a := newTestAssistant(t, gen, nil, adapter)

	for _, q := range a.Questions() {
		if _, err := a.GenerateSingleAnswer(context.Background(), q.ID, model.UserProfile{}, model.JobData{}); err != nil {
			t.Fatal(err)
		}
	}

	report, err := a.FillForm(context.Background(), FillOptions{Only: map[string]bool{"q-f2": true}})
	if err != nil {
		t.Fatalf("FillForm: %v", err)
	}
	if len(report.Filled) != 1 || report.Filled[0] != "q-f2" {
		t.Errorf("filled = %v, want [q-f2]", report.Filled)
	}
	if len(report.Skipped) != 1 || !strings.Contains(report.Skipped[0].Reason, "not selected") {
		t.Errorf("skipped = %+v, want q-f1 not selected", report.Skipped)
	}
}

func TestFillFormSimulatedTyping(t *testing.T) {
	fields := map[string]model.FieldContext{
		"f1": {Label: "Why do you want to work here?"},
	}
	adapter := newFakeAdapter(fields, "f1")
	gen := &stubGenerator{fn: func(q model.ScreeningQuestion) (*model.GeneratedAnswer, error) {
		return &model.GeneratedAnswer{QuestionID: q.ID, Question: q.Question, QuestionType: q.Type, Answer: "abc"}, nil
	}}
	a := newTestAssistant(t, gen, nil, adapter)

	if _, err := a.GenerateAllAnswers(context.Background(), model.UserProfile{}, model.JobData{}, BatchOptions{}); err != nil {
		t.Fatal(err)
	}

	report, err := a.FillForm(context.Background(), FillOptions{SimulateTyping: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Filled) != 1 {
		t.Fatalf("filled = %d", len(report.Filled))
	}
	if !reflectEqual(adapter.setCalls, []string{"a", "ab", "abc"}) {
		t.Errorf("setCalls = %v, want growing prefixes", adapter.setCalls)
	}
	if adapter.notifies != 3 {
		t.Errorf("notifications = %d, want one per character", adapter.notifies)
	}
}

func TestValidateProfileBasics(t *testing.T) {
	// Neither question requires resume context, so only the identity
	// fields are mandatory.
	fields := map[string]model.FieldContext{
		"f1": {Label: "Why do you want to work here?"},
		"f2": {Label: "What is your earliest start date?"},
	}
	a := newTestAssistant(t, &stubGenerator{}, nil, newFakeAdapter(fields, "f1", "f2"))

	if err := a.ValidateProfile(model.UserProfile{FirstName: "Jo", LastName: "N", Email: "jo@example.com"}); err != nil {
		t.Errorf("complete basic profile rejected: %v", err)
	}

	err := a.ValidateProfile(model.UserProfile{FirstName: "Jo"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !containsStr(err.Missing, "lastName") || !containsStr(err.Missing, "email") {
		t.Errorf("Missing = %v", err.Missing)
	}
}

func TestValidateProfileResumeFields(t *testing.T) {
	// salary requires resume context, so the extended fields kick in.
	fields, order := testFields()
	a := newTestAssistant(t, &stubGenerator{}, nil, newFakeAdapter(fields, order...))

	err := a.ValidateProfile(model.UserProfile{
		FirstName:       "Jo",
		LastName:        "N",
		Email:           "jo@example.com",
		YearsExperience: 5,
		Summary:         "Backend engineer.",
		// Skills missing.
	})
	if err == nil {
		t.Fatal("expected validation error for missing skills")
	}
	if !containsStr(err.Missing, "skills") {
		t.Errorf("Missing = %v, want skills", err.Missing)
	}

	found := false
	for _, rec := range err.Recommendations {
		if strings.Contains(strings.ToLower(rec), "skills") {
			found = true
		}
	}
	if !found {
		t.Error("no recommendation mentions skills")
	}
}

func containsStr(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func reflectEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
