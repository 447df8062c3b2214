package extract

import (
	"regexp"
)

// Rule is one named pattern in an ordered chain. The first capture group holds the value.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Section locates a block that starts at a heading and runs to the next blank line.
type Section struct {
	Name    string
	Heading *regexp.Regexp
}

// DefaultMarks is returned when a document has no usable number at all.
// It is a policy choice so downstream ranking still has an input, not a measurement.
const DefaultMarks = 75

const (
	maxSkills   = 10
	maxProjects = 3
)

// DefaultMarksRules is the labeled-pattern chain, tried in order.
func DefaultMarksRules() []Rule {
	return []Rule{
		{Name: "percentage", Pattern: regexp.MustCompile(`(?i)percentage[:\s]+(\d{1,3})\b`)},
		{Name: "marks", Pattern: regexp.MustCompile(`(?i)marks[:\s]+(\d{1,3})\b`)},
		{Name: "score", Pattern: regexp.MustCompile(`(?i)score[:\s]+(\d{1,3})\b`)},
		{Name: "grade", Pattern: regexp.MustCompile(`(?i)grade[:\s]+(\d{1,3})\b`)},
		{Name: "percent-sign", Pattern: regexp.MustCompile(`\b(\d{1,3})\s*%`)},
	}
}

// DefaultCGPARules is tried in order; the first match wins.
func DefaultCGPARules() []Rule {
	return []Rule{
		{Name: "cgpa", Pattern: regexp.MustCompile(`(?i)CGPA[:\s]+(\d+\.\d+)`)},
		{Name: "gpa", Pattern: regexp.MustCompile(`(?i)GPA[:\s]+(\d+\.\d+)`)},
		{Name: "percentage", Pattern: regexp.MustCompile(`(?i)percentage[:\s]+(\d{1,3})\b`)},
	}
}

var (
	skillsSection    = Section{Name: "skills", Heading: regexp.MustCompile(`(?i)\b(?:TECHNICAL SKILLS|KEY SKILLS|SKILLS|EXPERTISE)\b`)}
	educationSection = Section{Name: "education", Heading: regexp.MustCompile(`(?i)\b(?:EDUCATION|ACADEMIC|QUALIFICATION)`)}
	projectsSection  = Section{Name: "projects", Heading: regexp.MustCompile(`(?i)\b(?:PROJECT EXPERIENCE|ACADEMIC PROJECTS|PROJECTS)\b`)}

	reStandalone = regexp.MustCompile(`\b\d{1,3}\b`)
	reBlankLine  = regexp.MustCompile(`\n[ \t]*\n`)
	reSkillToken = regexp.MustCompile(`[A-Za-z0-9#+\-. ]{2,25}`)
	reProject    = regexp.MustCompile(`^\s*(?:[•\-*]\s*)?([A-Z][A-Za-z0-9 \-]{2,49})(.?)`)
)

var headingWords = map[string]struct{}{
	"skills":           {},
	"technical skills": {},
	"key skills":       {},
	"expertise":        {},
}

// Extractor applies the rule chains. The zero value is not usable; call New.
type Extractor struct {
	marks        []Rule
	cgpa         []Rule
	defaultMarks int
}

type Option func(*Extractor)

// WithMarksRule inserts r before the rule named before, or appends it when no such rule exists.
func WithMarksRule(r Rule, before string) Option {
	return func(e *Extractor) {
		e.marks = insertRule(e.marks, r, before)
	}
}

// WithCGPARule inserts r before the rule named before, or appends it.
func WithCGPARule(r Rule, before string) Option {
	return func(e *Extractor) {
		e.cgpa = insertRule(e.cgpa, r, before)
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		marks:        DefaultMarksRules(),
		cgpa:         DefaultCGPARules(),
		defaultMarks: DefaultMarks,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// RuleNames lists the marks chain in evaluation order.
func (e *Extractor) RuleNames() []string {
	names := make([]string, len(e.marks))
	for i, r := range e.marks {
		names[i] = r.Name
	}
	return names
}

func insertRule(rules []Rule, r Rule, before string) []Rule {
	for i, existing := range rules {
		if existing.Name == before {
			out := make([]Rule, 0, len(rules)+1)
			out = append(out, rules[:i]...)
			out = append(out, r)
			return append(out, rules[i:]...)
		}
	}
	return append(rules, r)
}

// block returns the text from the end of the heading (or its start, when
// includeHeading) to the next blank line. ok is false when there is no heading.
func (s Section) block(text string, includeHeading bool) (string, bool) {
	loc := s.Heading.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	start := loc[1]
	if includeHeading {
		start = loc[0]
	}
	rest := text[start:]
	if end := reBlankLine.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	return rest, true
}
