package model

// UserProfile is the candidate's background, supplied by the host.
// Read-only inside the pipeline.
type UserProfile struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	YearsExperience int
	Skills          []string
	Summary         string // short experience summary used in prompts
	CurrentTitle    string
	Education       string
	DesiredSalary   string
}

// FullName returns "First Last" with whatever parts are present.
func (p UserProfile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// JobData describes the posting the form belongs to, supplied by the host.
type JobData struct {
	Company      string
	Title        string
	Description  string
	Requirements []string
	Location     string
	URL          string
}

// CoverLetterInput carries everything needed to draft a cover letter.
type CoverLetterInput struct {
	Profile    UserProfile
	Job        JobData
	Tone       string   // e.g. "professional", "enthusiastic"; empty = professional
	Highlights []string // optional achievements to weave in
	MaxWords   int      // 0 = template default
}

// ResumeTailorInput carries a resume to be rewritten against a posting.
type ResumeTailorInput struct {
	Profile    UserProfile
	Job        JobData
	ResumeText string
}
