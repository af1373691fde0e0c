package model

import "time"

// QuestionType classifies a screening question into the fixed taxonomy.
// The set is closed: the detector only ever produces these values, and the
// prompt templates switch over them exhaustively.
type QuestionType string

const (
	TypeCompanyInterest   QuestionType = "companyInterest"
	TypeProjectExperience QuestionType = "projectExperience"
	TypeStrengths         QuestionType = "strengths"
	TypeWeaknesses        QuestionType = "weaknesses"
	TypeCareerMotivation  QuestionType = "careerMotivation"
	TypeTechnicalSkills   QuestionType = "technicalSkills"
	TypeSalary            QuestionType = "salary"
	TypeWorkStyle         QuestionType = "workStyle"
	TypeAvailability      QuestionType = "availability"
	TypeGeneric           QuestionType = "generic"
)

// AnswerFormat is an optional structural hint for the generated answer.
type AnswerFormat string

const (
	FormatSTAR      AnswerFormat = "star"
	FormatBullets   AnswerFormat = "bullets"
	FormatParagraph AnswerFormat = "paragraph"
)

// ScreeningQuestion is one free-text question detected in an application form.
// Immutable after creation within a detection pass.
type ScreeningQuestion struct {
	ID               string
	Type             QuestionType
	Question         string // the text shown to the applicant
	Placeholder      string
	Required         bool
	MaxLength        int    // 0 = no cap exposed by the host
	CurrentValue     string // pre-existing field value, if any
	RequiresResearch bool   // answer should reference the company
	RequiresResume   bool   // answer should draw on the candidate's background
	Format           AnswerFormat
	Locator          string // opaque handle into the host's form, usable for filling
	Metadata         map[string]string
}

// GeneratedAnswer is the resolved answer for one question in one session.
type GeneratedAnswer struct {
	QuestionID   string
	Question     string
	QuestionType QuestionType
	Answer       string
	FromCache    bool
	CacheID      string  // set when FromCache
	Similarity   float64 // set when FromCache, in [0,1]
	GeneratedAt  time.Time
	TokenCount   int
	Confidence   float64 // in [0,1]
	UserEdited   bool
	EditedAt     *time.Time
}

// CacheEntry is a previously accepted answer persisted for reuse.
// Text fields are immutable once written; only rating, usage count and
// last-used move after insert.
type CacheEntry struct {
	ID           string
	Question     string
	QuestionType QuestionType
	Answer       string
	Rating       *int // 1-5, nil when unrated
	UsageCount   int
	CreatedAt    time.Time
	LastUsed     time.Time
	Keywords     []string // derived from Question, not user-supplied
	JobCompany   string
	JobTitle     string
}

// CacheMatch pairs a cache entry with its similarity against a query.
type CacheMatch struct {
	Entry      CacheEntry
	Similarity float64
}

// FieldContext is the raw material the host exposes for one form field.
// The detector classifies it; the orchestrator fills it.
type FieldContext struct {
	Label          string
	Placeholder    string
	Heading        string
	HelpText       string
	Required       bool
	AriaRequired   bool
	ContainerClass string
	MaxLength      int
	Value          string
	// Extra carries host-specific attributes verbatim; the pipeline never
	// interprets them.
	Extra map[string]string
}

// FieldAdapter abstracts the hosting platform (browser extension, webview,
// in-app browser). Hosts implement it; the pipeline never touches platform
// APIs directly.
type FieldAdapter interface {
	// ListFields returns the locators of all fillable form fields, in
	// document order.
	ListFields() ([]string, error)
	// ReadContext returns the text fragments and flags associated with a field.
	ReadContext(locator string) (FieldContext, error)
	// SetValue sets the field's current value.
	SetValue(locator, value string) error
	// NotifyChanged fires the host's standard change-notification sequence
	// for the field (input -> change -> blur, or platform equivalent).
	NotifyChanged(locator string) error
}
