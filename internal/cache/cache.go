package cache

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/applypilot/internal/model"
)

// Similarity thresholds used by the callers of FindAnswers. The cache itself
// never applies a default: silently substituting an answer into a field
// warrants more precision than offering a suggestion, so the two call sites
// deliberately differ.
const (
	DefaultPreviewThreshold   = 0.70
	DefaultAutoApplyThreshold = 0.85
)

// Store is the persistence backend for cache entries.
type Store interface {
	Insert(e model.CacheEntry) error
	Get(id string) (model.CacheEntry, error)
	ListByType(qtype model.QuestionType) ([]model.CacheEntry, error)
	All() ([]model.CacheEntry, error)
	IncrementUsage(id string, when time.Time) error
	SetRating(id string, rating int) error
	Delete(id string) error
	DeleteAll() error
}

// FindOptions controls retrieval. Threshold is mandatory for callers:
// entries below it are never returned.
type FindOptions struct {
	Limit     int // max results; 0 = all
	Threshold float64
}

// JobContext optionally tags a saved answer with the posting it was
// written for.
type JobContext struct {
	Company string
	Title   string
}

// Statistics summarizes the cache contents.
type Statistics struct {
	Total         int
	PerType       map[model.QuestionType]int
	TotalUsage    int
	RatedEntries  int
	AverageRating float64 // over rated entries only; 0 when none are rated
}

// AnswerCache stores accepted answers and retrieves similar ones via
// keyword-set Jaccard similarity.
type AnswerCache struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates an AnswerCache over the given store.
func New(store Store, logger *slog.Logger) *AnswerCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerCache{store: store, logger: logger, now: time.Now}
}

// SaveAnswer appends a new entry and returns its id. Rating may be nil.
func (c *AnswerCache) SaveAnswer(question string, qtype model.QuestionType, answer string, rating *int, job *JobContext) (string, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return "", fmt.Errorf("rating %d out of range 1-5", *rating)
	}

	now := c.now()
	e := model.CacheEntry{
		ID:           uuid.NewString(),
		Question:     question,
		QuestionType: qtype,
		Answer:       answer,
		Rating:       rating,
		CreatedAt:    now,
		LastUsed:     now,
		Keywords:     ExtractKeywords(question),
	}
	if job != nil {
		e.JobCompany = job.Company
		e.JobTitle = job.Title
	}

	if err := c.store.Insert(e); err != nil {
		return "", err
	}
	c.logger.Debug("cached answer", "id", e.ID, "type", qtype, "keywords", len(e.Keywords))
	return e.ID, nil
}

// FindAnswers returns entries of the same question type whose keyword
// similarity to question meets opts.Threshold, sorted by similarity desc,
// rating desc (unrated = 0), usage desc, capped at opts.Limit.
func (c *AnswerCache) FindAnswers(question string, qtype model.QuestionType, opts FindOptions) ([]model.CacheMatch, error) {
	candidates, err := c.store.ListByType(qtype)
	if err != nil {
		return nil, err
	}

	queryKeywords := ExtractKeywords(question)

	var matches []model.CacheMatch
	for _, e := range candidates {
		sim := Jaccard(queryKeywords, e.Keywords)
		if sim < opts.Threshold {
			continue
		}
		matches = append(matches, model.CacheMatch{Entry: e, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if ra, rb := ratingOrZero(a.Entry.Rating), ratingOrZero(b.Entry.Rating); ra != rb {
			return ra > rb
		}
		return a.Entry.UsageCount > b.Entry.UsageCount
	})

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

// RecordUsage increments the entry's usage count by exactly 1 and stamps
// last-used.
func (c *AnswerCache) RecordUsage(id string) error {
	return c.store.IncrementUsage(id, c.now())
}

// UpdateRating sets the entry's rating. Text fields are never touched.
func (c *AnswerCache) UpdateRating(id string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating %d out of range 1-5", rating)
	}
	return c.store.SetRating(id, rating)
}

// DeleteAnswer removes one entry.
func (c *AnswerCache) DeleteAnswer(id string) error {
	return c.store.Delete(id)
}

// Clear removes every entry.
func (c *AnswerCache) Clear() error {
	return c.store.DeleteAll()
}

// GetStatistics computes entry counts, usage totals and the average rating.
// Unrated entries are excluded from the average, not counted as zero.
func (c *AnswerCache) GetStatistics() (Statistics, error) {
	entries, err := c.store.All()
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		Total:   len(entries),
		PerType: make(map[model.QuestionType]int),
	}
	ratingSum := 0
	for _, e := range entries {
		stats.PerType[e.QuestionType]++
		stats.TotalUsage += e.UsageCount
		if e.Rating != nil {
			stats.RatedEntries++
			ratingSum += *e.Rating
		}
	}
	if stats.RatedEntries > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.RatedEntries)
	}
	return stats, nil
}

func ratingOrZero(r *int) int {
	if r == nil {
		return 0
	}
	return *r
}
