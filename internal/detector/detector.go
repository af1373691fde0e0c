package detector

import (
	"fmt"
	"strings"

	"github.com/amishk599/applypilot/internal/model"
)

// rule maps a question type to its weight and the keyword phrases that
// signal it. Matching is case-insensitive substring over the field's
// concatenated text fragments.
type rule struct {
	qtype            model.QuestionType
	weight           int
	requiresResearch bool
	requiresResume   bool
	format           model.AnswerFormat
	keywords         []string
}

// rules is ordered by descending weight; declaration order breaks ties, so
// classification is fully deterministic.
var rules = []rule{
	{
		qtype:            model.TypeCompanyInterest,
		weight:           15,
		requiresResearch: true,
		keywords: []string{
			"why do you want to work",
			"why are you interested in",
			"what attracts you to",
			"why our company",
			"why this company",
			"interest in joining",
			"why do you want to join",
		},
	},
	{
		qtype:          model.TypeProjectExperience,
		weight:         12,
		requiresResume: true,
		format:         model.FormatSTAR,
		keywords: []string{
			"describe a project",
			"tell us about a project",
			"describe a time",
			"tell us about a time",
			"tell me about a time",
			"biggest accomplishment",
			"proudest achievement",
			"challenging project",
			"describe a situation",
		},
	},
	{
		qtype:          model.TypeStrengths,
		weight:         10,
		requiresResume: true,
		keywords: []string{
			"greatest strength",
			"your strengths",
			"what are you good at",
			"best qualities",
			"what makes you a strong",
		},
	},
	{
		qtype:          model.TypeWeaknesses,
		weight:         10,
		requiresResume: true,
		keywords: []string{
			"greatest weakness",
			"your weaknesses",
			"area of improvement",
			"areas for improvement",
			"what would you improve about yourself",
		},
	},
	{
		qtype:  model.TypeCareerMotivation,
		weight: 10,
		keywords: []string{
			"career goals",
			"where do you see yourself",
			"why are you looking for",
			"reason for leaving",
			"what motivates you",
			"long-term goals",
			"long term goals",
		},
	},
	{
		qtype:          model.TypeTechnicalSkills,
		weight:         10,
		requiresResume: true,
		keywords: []string{
			"technical skills",
			"programming languages",
			"technologies you",
			"describe your experience with",
			"rate your proficiency",
			"technical background",
		},
	},
	{
		qtype:          model.TypeSalary,
		weight:         8,
		requiresResume: true,
		keywords: []string{
			"salary",
			"compensation",
			"expected pay",
			"pay expectations",
			"desired rate",
		},
	},
	{
		qtype:          model.TypeWorkStyle,
		weight:         8,
		requiresResume: true,
		keywords: []string{
			"work style",
			"team environment",
			"work independently",
			"how do you handle",
			"how do you collaborate",
			"how do you prioritize",
		},
	},
	{
		qtype:  model.TypeAvailability,
		weight: 5,
		keywords: []string{
			"start date",
			"when can you start",
			"notice period",
			"availability",
			"available to start",
			"willing to relocate",
		},
	},
}

// minAcceptWeight is the lowest winning weight at which a field is accepted
// as a screening question. Below it the field is silently ignored.
const minAcceptWeight = 5

// Detector classifies form fields into the screening-question taxonomy.
type Detector struct{}

// New returns a Detector. It is stateless and safe to share.
func New() *Detector {
	return &Detector{}
}

// Classify scores text against every rule and returns the winning type with
// its weight. Returns (TypeGeneric, 0) when nothing matches.
func (d *Detector) Classify(text string) (model.QuestionType, int) {
	lower := strings.ToLower(text)

	best := model.TypeGeneric
	bestWeight := 0
	for _, r := range rules {
		if r.weight <= bestWeight {
			continue // rules are sorted, nothing later can win
		}
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				best = r.qtype
				bestWeight = r.weight
				break
			}
		}
	}
	return best, bestWeight
}

// Detect classifies a single field. Returns nil when the field is not a
// screening question; it never returns an error (unclassifiable fields are
// simply skipped).
func (d *Detector) Detect(locator string, fc model.FieldContext) *model.ScreeningQuestion {
	text := joinFragments(fc)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	qtype, weight := d.Classify(text)
	if weight < minAcceptWeight {
		return nil
	}

	r := ruleFor(qtype)
	return &model.ScreeningQuestion{
		ID:               questionID(locator),
		Type:             qtype,
		Question:         questionText(fc),
		Placeholder:      fc.Placeholder,
		Required:         isRequired(fc),
		MaxLength:        fc.MaxLength,
		CurrentValue:     fc.Value,
		RequiresResearch: r.requiresResearch,
		RequiresResume:   r.requiresResume,
		Format:           r.format,
		Locator:          locator,
		Metadata:         fc.Extra,
	}
}

// DetectAll runs Detect over every field the adapter exposes, preserving
// document order. Fields that fail to read or classify are skipped.
func (d *Detector) DetectAll(adapter model.FieldAdapter) ([]model.ScreeningQuestion, error) {
	locators, err := adapter.ListFields()
	if err != nil {
		return nil, fmt.Errorf("listing form fields: %w", err)
	}

	var questions []model.ScreeningQuestion
	for _, loc := range locators {
		fc, err := adapter.ReadContext(loc)
		if err != nil {
			continue // unreadable field, not an error for the pass
		}
		if q := d.Detect(loc, fc); q != nil {
			questions = append(questions, *q)
		}
	}
	return questions, nil
}

// joinFragments concatenates the field's associated text for classification.
func joinFragments(fc model.FieldContext) string {
	parts := []string{fc.Label, fc.Placeholder, fc.Heading, fc.HelpText}
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// questionText picks the best human-readable question text for a field:
// label, then heading, then placeholder.
func questionText(fc model.FieldContext) string {
	for _, s := range []string{fc.Label, fc.Heading, fc.Placeholder} {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// isRequired applies the host-signal heuristics: explicit attribute,
// aria-required, a "*" or the word "required" in the label, or a container
// class signalling required/mandatory.
func isRequired(fc model.FieldContext) bool {
	if fc.Required || fc.AriaRequired {
		return true
	}
	label := strings.ToLower(fc.Label)
	if strings.Contains(fc.Label, "*") || strings.Contains(label, "required") {
		return true
	}
	class := strings.ToLower(fc.ContainerClass)
	return strings.Contains(class, "required") || strings.Contains(class, "mandatory")
}

func questionID(locator string) string {
	return "q-" + locator
}

func ruleFor(qtype model.QuestionType) rule {
	for _, r := range rules {
		if r.qtype == qtype {
			return r
		}
	}
	return rule{qtype: model.TypeGeneric}
}
