// Package recommend answers college, company, course and NSQF queries from
// verified catalogs and the generative backend.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/guidify/constants"
	"github.com/joseph-ayodele/guidify/internal/async"
	"github.com/joseph-ayodele/guidify/internal/cache"
	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/extract"
	"github.com/joseph-ayodele/guidify/internal/llm"
)

const (
	// CollegeLimit is how many colleges a query returns.
	CollegeLimit = 5
	// ResumePromptChars bounds the resume text sent for parsing.
	ResumePromptChars = 10000
	// MaxSkillsInPrompt bounds the skills listed in the company prompt.
	MaxSkillsInPrompt = 15
	// MaxNSQFOptions bounds the catalog courses offered to the backend.
	MaxNSQFOptions = 30
)

type Service struct {
	gw      *llm.Gateway
	cache   *cache.RecommendationCache
	catalog *Catalog
	fields  extract.FieldExtractor
	queue   async.Queue
	logger  *slog.Logger
}

// NewService wires the recommender. A nil catalog uses the built-in
// datasets, a nil queue writes back inline.
func NewService(gw *llm.Gateway, rc *cache.RecommendationCache, catalog *Catalog, fields extract.FieldExtractor, queue async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if fields == nil {
		fields = extract.New()
	}
	if queue == nil {
		queue = async.Inline{}
	}
	return &Service{gw: gw, cache: rc, catalog: catalog, fields: fields, queue: queue, logger: logger}
}

// Colleges returns {"colleges": [...]} for a stream and score. Results are
// cached per user under CollegeSignature; cached reports a cache hit.
func (s *Service) Colleges(ctx context.Context, userID string, marks int, board, stream string) (payload map[string]any, cached bool, err error) {
	v := common.NewValidator().
		Field("marks", marks, common.IntRange(0, 100)).
		Field("stream", stream, common.Required, common.MaxLength(60))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, false, err
	}

	sig := cache.CollegeSignature(stream, marks)
	if hit, ok := s.cache.Get(ctx, userID, sig); ok {
		return hit, true, nil
	}

	picked := s.catalog.CollegesFor(stream, CollegeLimit)
	payload = map[string]any{"colleges": generic(picked)}
	s.logger.Info("recommend.colleges.generated",
		"user_id", userID, "stream", stream, "board", board, "marks", marks, "count", len(picked))

	s.writeBack(ctx, userID, sig, payload)
	return payload, false, nil
}

func (s *Service) writeBack(ctx context.Context, userID, sig string, payload map[string]any) {
	if userID == "" || s.cache == nil {
		return
	}
	err := s.queue.Enqueue(ctx, async.Job{
		Name: "cache.write_back",
		Key:  userID,
		Run: func(ctx context.Context) error {
			return s.cache.Put(ctx, userID, sig, payload).Err
		},
	})
	if err != nil {
		s.logger.Warn("recommend.cache.write_back_skipped", "user_id", userID, "signature", sig, "error", err)
	}
}

// ParseResume extracts {skills, cgpa, summary} from resume text. The
// heuristic field extractor supplies the answer when generation fails.
func (s *Service) ParseResume(ctx context.Context, text string) map[string]any {
	out := s.gw.Invoke(ctx, llm.Request{
		Name:              "recommend.parse_resume",
		Prompt:            resumePrompt(text),
		SystemInstruction: "You are an expert HR AI. Extract data accurately.",
		RequiredKeys:      []string{"skills"},
	}, func() map[string]any {
		p := s.fields.ExtractProfile(text)
		var cgpa any
		if p.CGPA != nil {
			cgpa = *p.CGPA
		}
		return map[string]any{"skills": generic(p.Skills), "cgpa": cgpa, "summary": ""}
	})
	return out.Payload
}

type CompanyQuery struct {
	Skills    []string
	CGPA      *float64
	Stream    string
	Institute string
	Location  string
}

// Companies suggests employers for a candidate, or {companies: []}.
func (s *Service) Companies(ctx context.Context, q CompanyQuery) (map[string]any, error) {
	v := common.NewValidator().
		Field("location", q.Location, common.MaxLength(120)).
		Field("institute", q.Institute, common.MaxLength(200))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	out := s.gw.Invoke(ctx, llm.Request{
		Name:              "recommend.companies",
		Prompt:            companiesPrompt(q),
		SystemInstruction: "You are a career counselor. Suggest real companies.",
		RequiredKeys:      []string{"companies"},
	}, func() map[string]any { return map[string]any{"companies": []any{}} })
	return out.Payload, nil
}

// Courses lists programmes at a college, or {courses: []}.
func (s *Service) Courses(ctx context.Context, college, preference string) (map[string]any, error) {
	v := common.NewValidator().
		Field("college", college, common.Required, common.MaxLength(200)).
		Field("preference", preference, common.MaxLength(120))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	if strings.TrimSpace(preference) == "" {
		preference = "General"
	}
	out := s.gw.Invoke(ctx, llm.Request{
		Name:              "recommend.courses",
		Prompt:            coursesPrompt(college, preference),
		SystemInstruction: "Provide accurate course info.",
		RequiredKeys:      []string{"courses"},
	}, func() map[string]any { return map[string]any{"courses": []any{}} })
	return out.Payload, nil
}

// NSQF picks catalog courses at the tier's NSQF levels for a goal. It
// returns {recommendations: []} without calling the backend when no
// course is at those levels.
func (s *Service) NSQF(ctx context.Context, tier, goal string) (map[string]any, error) {
	v := common.NewValidator().Field("career_goal", goal, common.Required, common.MinLength(2), common.MaxLength(120))
	if strings.TrimSpace(tier) != "" {
		v.Field("tier", tier, common.OneOf(constants.Tiers()...))
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	empty := func() map[string]any { return map[string]any{"recommendations": []any{}} }

	tier = string(constants.ParseTier(tier))
	levels := constants.NSQFLevels(constants.Tier(tier))
	courses := s.catalog.CoursesAt(levels)
	if len(courses) == 0 {
		s.logger.Info("recommend.nsqf.no_courses", "tier", tier, "levels", levels)
		return empty(), nil
	}
	if len(courses) > MaxNSQFOptions {
		courses = courses[:MaxNSQFOptions]
	}

	out := s.gw.Invoke(ctx, llm.Request{
		Name:         "recommend.nsqf",
		Prompt:       nsqfPrompt(tier, goal, levels, courses),
		RequiredKeys: []string{"recommendations"},
	}, empty)
	return out.Payload, nil
}

// generic converts typed results to the JSON shapes a cache read returns.
func generic(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return []any{}
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil || out == nil {
		return []any{}
	}
	return out
}

func resumePrompt(text string) string {
	if r := []rune(text); len(r) > ResumePromptChars {
		text = string(r[:ResumePromptChars])
	}
	return fmt.Sprintf(`Extract applicant data from this resume text. Return JSON:
{
  "skills": ["..."],
  "cgpa": number | null,
  "summary": "30 words or fewer"
}
Resume:
"""%s"""`, text)
}

func companiesPrompt(q CompanyQuery) string {
	skills := "entry-level"
	if len(q.Skills) > 0 {
		skills = strings.Join(q.Skills[:min(len(q.Skills), MaxSkillsInPrompt)], ", ")
	}
	cgpa := "unknown"
	if q.CGPA != nil {
		cgpa = fmt.Sprintf("%g", *q.CGPA)
	}
	return fmt.Sprintf(`Context:
- Skills: %[1]s
- CGPA: %[2]s
- Stream: %[3]s
- Institute: %[4]s
- Preferred Location: %[5]s

For each company, include the nearest office location relative to %[5]s.

Return JSON:
{
  "companies": [
    {
      "name": "Company Name",
      "roles": ["..."],
      "nearest_office": "Nearest office to %[5]s",
      "employment_rating": number,
      "management_rating": number,
      "why_fit": "30 words or fewer"
    }
  ]
}`, skills, cgpa, q.Stream, q.Institute, q.Location)
}

func coursesPrompt(college, preference string) string {
	return fmt.Sprintf(`Generate a list of 10 courses offered at %s with placement ratings.
Focus on %s related courses if applicable.

Return JSON:
{
  "courses": [
    {
      "name": "Course name",
      "duration": "Duration in years",
      "placement_rate": number,
      "average_salary": "Average salary package",
      "difficulty": number,
      "description": "Brief description"
    }
  ]
}`, college, preference)
}

func nsqfPrompt(tier, goal string, levels []int, courses []NSQFCourse) string {
	type option struct {
		Name   string `json:"name"`
		Level  int    `json:"level"`
		Sector string `json:"sector"`
	}
	opts := make([]option, 0, len(courses))
	for _, c := range courses {
		sector := c.Sector
		if sector == "" {
			sector = "General"
		}
		opts = append(opts, option{Name: c.CourseName, Level: c.Level, Sector: sector})
	}
	b, _ := json.Marshal(opts)

	return fmt.Sprintf(`Select the top 3 NCVET courses for:
- Level: %s (NSQF %v)
- Goal: %s

Options:
%s

Return JSON:
{
  "recommendations": [
    {
      "course_name": "Exact Name",
      "nsqf_level": 0,
      "certification_body": "NCVET",
      "duration_hours": 100,
      "reason": "Brief reason"
    }
  ]
}`, tier, levels, goal, b)
}
