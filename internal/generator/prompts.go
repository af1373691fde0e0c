package generator

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/amishk599/applypilot/internal/model"
)

//go:embed prompts/answer_context.md
var answerContextRaw string

// answerContextTemplate renders the shared candidate/job context block.
// Parsed once at package init; reused on every generation call.
var answerContextTemplate = template.Must(
	template.New("answer_context").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(answerContextRaw),
)

// maxDescriptionChars caps how much of the job description goes into the
// prompt; long postings blow the token budget without adding signal.
const maxDescriptionChars = 1500

type contextData struct {
	Profile     model.UserProfile
	Job         model.JobData
	Description string
}

// buildContext renders the shared context block for a profile and job.
func buildContext(profile model.UserProfile, job model.JobData) (string, error) {
	desc := job.Description
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars] + "…"
	}

	var buf bytes.Buffer
	err := answerContextTemplate.Execute(&buf, contextData{
		Profile:     profile,
		Job:         job,
		Description: desc,
	})
	if err != nil {
		return "", fmt.Errorf("render context block: %w", err)
	}
	return buf.String(), nil
}

// typeInstructions returns the per-type instruction block appended after the
// shared context. The switch is exhaustive over the taxonomy; generic is the
// neutral fallback.
func typeInstructions(q model.ScreeningQuestion) string {
	switch q.Type {
	case model.TypeCompanyInterest:
		return "Explain why the candidate wants to join this specific company. " +
			"Reference the company's product, mission, or reputation where the job description supports it. " +
			"Enthusiastic but grounded tone. Target 120-180 words."
	case model.TypeProjectExperience:
		return "Describe one concrete project from the candidate's background using the STAR structure: " +
			"Situation, Task, Action, Result. Quantify the result if at all plausible. Target 150-220 words."
	case model.TypeStrengths:
		return "Name two or three genuine strengths backed by the candidate's skills and background, " +
			"each with a short supporting example. Confident, not boastful. Target 100-150 words."
	case model.TypeWeaknesses:
		return "Name one real but non-disqualifying weakness and describe the concrete steps the candidate " +
			"takes to manage it. Honest, self-aware tone. Target 80-130 words."
	case model.TypeCareerMotivation:
		return "Describe the candidate's career direction and why this move fits it. " +
			"Forward-looking, avoids criticizing past employers. Target 100-150 words."
	case model.TypeTechnicalSkills:
		return "Summarize the candidate's technical skills most relevant to the role's requirements, " +
			"with years or depth where the profile supports it. Matter-of-fact tone. Target 100-160 words."
	case model.TypeSalary:
		return "State a salary expectation as a numeric range rather than a single figure, " +
			"anchored to the candidate's experience level, and signal flexibility. Two or three sentences."
	case model.TypeWorkStyle:
		return "Describe how the candidate works day to day: collaboration, communication, autonomy. " +
			"Use one brief example. Target 80-130 words."
	case model.TypeAvailability:
		return "State availability or start date plainly in one or two sentences. " +
			"If the profile gives no date, a standard two-week notice is a safe default."
	default:
		return "Answer the question directly and professionally in the candidate's voice. Target 100-150 words."
	}
}

// buildAnswerPrompt assembles context + type instructions + the literal
// question into the final prompt.
func buildAnswerPrompt(q model.ScreeningQuestion, profile model.UserProfile, job model.JobData) (string, error) {
	ctxBlock, err := buildContext(profile, job)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(ctxBlock)
	b.WriteString("\n\nInstructions: ")
	b.WriteString(typeInstructions(q))
	if q.MaxLength > 0 {
		fmt.Fprintf(&b, " The answer must fit in %d characters.", q.MaxLength)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(q.Question)
	b.WriteString("\n\nAnswer:")
	return b.String(), nil
}

// buildCoverLetterPrompt assembles the cover-letter prompt over the same
// context block.
func buildCoverLetterPrompt(in model.CoverLetterInput) (string, error) {
	ctxBlock, err := buildContext(in.Profile, in.Job)
	if err != nil {
		return "", err
	}

	tone := in.Tone
	if tone == "" {
		tone = "professional"
	}
	words := in.MaxWords
	if words <= 0 {
		words = 300
	}

	var b strings.Builder
	b.WriteString(ctxBlock)
	fmt.Fprintf(&b, "\n\nInstructions: Write a %s cover letter for this role in at most %d words. ", tone, words)
	b.WriteString("Three or four paragraphs: opening hook, relevant experience, fit with the company, closing. ")
	b.WriteString("No placeholder brackets; use only facts from the candidate profile.")
	if len(in.Highlights) > 0 {
		b.WriteString(" Work in these achievements where natural:\n")
		for _, h := range in.Highlights {
			b.WriteString("- " + h + "\n")
		}
	}
	b.WriteString("\nCover letter:")
	return b.String(), nil
}

// buildResumeTailorPrompt assembles the resume-tailoring prompt.
func buildResumeTailorPrompt(in model.ResumeTailorInput) (string, error) {
	ctxBlock, err := buildContext(in.Profile, in.Job)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(ctxBlock)
	b.WriteString("\n\nInstructions: Rewrite the resume below so its wording and emphasis match the role's requirements. ")
	b.WriteString("Keep every claim truthful to the original; reorder and rephrase, do not invent experience. ")
	b.WriteString("Return only the revised resume text.\n\nResume:\n")
	b.WriteString(in.ResumeText)
	b.WriteString("\n\nRevised resume:")
	return b.String(), nil
}
