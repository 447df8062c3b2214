package extract

import (
	"strconv"
	"strings"
)

// ExtractProfile runs the section heuristics. Missing headings give empty fields.
func (e *Extractor) ExtractProfile(text string) StructuredProfile {
	p := StructuredProfile{
		Skills:   e.skills(text),
		CGPA:     e.ExtractCGPA(text),
		Projects: e.projects(text),
	}
	if edu, ok := educationSection.block(text, true); ok {
		p.Education = strings.TrimSpace(edu)
	}
	return p
}

func (e *Extractor) skills(text string) []string {
	block, ok := skillsSection.block(text, false)
	if !ok {
		return []string{}
	}
	out := []string{}
	seen := map[string]struct{}{}
	for _, line := range strings.Split(block, "\n") {
		for _, tok := range reSkillToken.FindAllString(line, -1) {
			tok = strings.TrimSpace(tok)
			key := strings.ToLower(tok)
			if len(tok) < 3 {
				continue
			}
			if _, heading := headingWords[key]; heading {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, tok)
			if len(out) == maxSkills {
				return out
			}
		}
	}
	return out
}

func (e *Extractor) projects(text string) []string {
	block, ok := projectsSection.block(text, false)
	if !ok {
		return []string{}
	}
	out := []string{}
	lines := strings.Split(block, "\n")
	// the remainder of the heading line is not a title
	for _, line := range lines[1:] {
		m := reProject.FindStringSubmatch(strings.TrimRight(line, " \t\r"))
		if m == nil {
			continue
		}
		// title must end the line or be followed by ':'
		if m[2] != "" && m[2] != ":" {
			continue
		}
		title := strings.TrimSpace(m[1])
		if len(title) < 3 {
			continue
		}
		out = append(out, title)
		if len(out) == maxProjects {
			break
		}
	}
	return out
}

// ExtractCGPA returns the first CGPA-like value on a 0-10 scale, or nil.
func (e *Extractor) ExtractCGPA(text string) *float64 {
	for _, r := range e.cgpa {
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		v = normalizeCGPA(v)
		return &v
	}
	return nil
}

func normalizeCGPA(v float64) float64 {
	switch {
	case v <= 10:
		return v
	case v <= 100:
		return v / 10
	default:
		return v / 100
	}
}
